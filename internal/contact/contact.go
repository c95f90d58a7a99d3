package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

// MessageDTO is the transport shape of one inbound message.
type MessageDTO struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Subject   string              `json:"subject"`
	Body      string              `json:"body"`
	Status    enums.ContactStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// SubmitInput is the public contact form payload.
type SubmitInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=8000"`
}

// PageDTO is one cursor page of messages.
type PageDTO struct {
	Items      []MessageDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Total      int64        `json:"total"`
}

// Repository encapsulates contact message persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a contact repo bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new message in the "new" state.
func (r *Repository) Create(ctx context.Context, row *models.ContactMessage) (*models.ContactMessage, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByID loads one message.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ContactMessage, error) {
	var row models.ContactMessage
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateStatus transitions the triage state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContactStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.ContactMessage{}).
		Where("id = ?", id).
		UpdateColumn("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns one cursor page, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *enums.ContactStatus, params pagination.Params) (PageDTO, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return PageDTO{}, err
	}

	qb := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if status != nil {
		qb = qb.Where("status = ?", *status)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return PageDTO{}, err
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ContactMessage
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

	items := make([]MessageDTO, 0, len(resultRows))
	for _, row := range resultRows {
		items = append(items, toDTO(row))
	}

	return PageDTO{Items: items, NextCursor: nextCursor, Total: total}, nil
}

func toDTO(row models.ContactMessage) MessageDTO {
	return MessageDTO{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Subject:   row.Subject,
		Body:      row.Body,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
	}
}

// Service wraps the repository with validation and triage rules.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*MessageDTO, error)
	List(ctx context.Context, status *enums.ContactStatus, params pagination.Params) (PageDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContactStatus) (*MessageDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds the contact service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*MessageDTO, error) {
	row, err := s.repo.Create(ctx, &models.ContactMessage{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Subject: strings.TrimSpace(input.Subject),
		Body:    strings.TrimSpace(input.Body),
		Status:  enums.ContactStatusNew,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact message")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, status *enums.ContactStatus, params pagination.Params) (PageDTO, error) {
	if status != nil && !status.IsValid() {
		return PageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact status")
	}
	page, err := s.repo.List(ctx, status, params)
	if err != nil {
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact messages")
	}
	return page, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContactStatus) (*MessageDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "message not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact status")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload message")
	}
	dto := toDTO(*row)
	return &dto, nil
}
