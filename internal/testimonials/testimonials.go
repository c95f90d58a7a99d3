package testimonials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/db/models"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

// TestimonialDTO is the transport shape of one review.
type TestimonialDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitInput is the payload a customer posts.
type SubmitInput struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body" validate:"required,max=4000"`
}

// PageDTO is one cursor page of testimonials.
type PageDTO struct {
	Items      []TestimonialDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
	Total      int64            `json:"total"`
}

// Repository encapsulates testimonial persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a testimonials repo bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new unapproved testimonial.
func (r *Repository) Create(ctx context.Context, row *models.Testimonial) (*models.Testimonial, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByID loads one testimonial.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Testimonial, error) {
	var row models.Testimonial
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// SetApproved flips the moderation flag.
func (r *Repository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Testimonial{}).
		Where("id = ?", id).
		UpdateColumn("approved", approved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a testimonial permanently.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Testimonial{}, "id = ?", id).Error
}

// List returns one cursor page, optionally restricted to approved rows.
func (r *Repository) List(ctx context.Context, approvedOnly bool, params pagination.Params) (PageDTO, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return PageDTO{}, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Testimonial{})
	if approvedOnly {
		qb = qb.Where("approved = ?", true)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return PageDTO{}, err
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Testimonial
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return PageDTO{}, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	items := make([]TestimonialDTO, 0, len(resultRows))
	for _, row := range resultRows {
		items = append(items, toDTO(row))
	}

	return PageDTO{Items: items, NextCursor: nextCursor, Total: total}, nil
}

func toDTO(row models.Testimonial) TestimonialDTO {
	return TestimonialDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Rating:    row.Rating,
		Title:     row.Title,
		Body:      row.Body,
		Approved:  row.Approved,
		CreatedAt: row.CreatedAt,
	}
}

// Service applies moderation rules around the repository.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*TestimonialDTO, error)
	ListApproved(ctx context.Context, params pagination.Params) (PageDTO, error)
	ListAll(ctx context.Context, params pagination.Params) (PageDTO, error)
	Approve(ctx context.Context, id uuid.UUID) (*TestimonialDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

// NewService builds the testimonials service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("testimonials repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*TestimonialDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	row, err := s.repo.Create(ctx, &models.Testimonial{
		UserID: userID,
		Rating: input.Rating,
		Title:  strings.TrimSpace(input.Title),
		Body:   strings.TrimSpace(input.Body),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create testimonial")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) ListApproved(ctx context.Context, params pagination.Params) (PageDTO, error) {
	page, err := s.repo.List(ctx, true, params)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list testimonials")
	}
	return page, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (PageDTO, error) {
	page, err := s.repo.List(ctx, false, params)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list testimonials")
	}
	return page, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID) (*TestimonialDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "testimonial id is required")
	}
	if err := s.repo.SetApproved(ctx, id, true); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "testimonial not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve testimonial")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload testimonial")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "testimonial id is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "testimonial not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load testimonial")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete testimonial")
	}
	return nil
}
