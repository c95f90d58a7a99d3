package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

// Repository exposes order persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderListResult, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (bool, error)
	UpdateFulfillment(ctx context.Context, order *models.Order) error
}

// ListFilter narrows admin order listings.
type ListFilter struct {
	PaymentStatus     *enums.PaymentStatus
	FulfillmentStatus *enums.FulfillmentStatus
	UserID            *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "stripe_checkout_session_id = ?", sessionID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "stripe_payment_intent_id = ?", intentID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	return r.list(ctx, ListFilter{UserID: &userID}, params)
}

func (r *repository) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderListResult, error) {
	return r.list(ctx, filter, params)
}

func (r *repository) list(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursorValue := strings.TrimSpace(params.Cursor)
	cursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		qb = qb.Where("user_id = ?", *filter.UserID)
	}
	if filter.PaymentStatus != nil {
		qb = qb.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.FulfillmentStatus != nil {
		qb = qb.Where("fulfillment_status = ?", *filter.FulfillmentStatus)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = qb.Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	dtos := make([]OrderDTO, 0, len(resultRows))
	for i := range resultRows {
		dtos = append(dtos, *NewOrderDTO(&resultRows[i]))
	}

	return &OrderListResult{
		Orders:     dtos,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

// MarkPaid flips a pending order to paid and hands fulfillment to the
// processing queue. The guard on payment_status makes the transition happen
// at most once no matter how many confirmation paths race; zero rows affected
// means another caller already won.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"payment_status":     enums.PaymentStatusPaid,
		"fulfillment_status": enums.FulfillmentStatusProcessing,
		"paid_at":            paidAt,
	}
	if paymentIntentID != "" {
		updates["stripe_payment_intent_id"] = paymentIntentID
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFailed flips a pending order to failed under the same guard as MarkPaid.
func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (bool, error) {
	updates := map[string]any{
		"payment_status": enums.PaymentStatusFailed,
	}
	if paymentIntentID != "" {
		updates["stripe_payment_intent_id"] = paymentIntentID
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdateFulfillment(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"fulfillment_status": order.FulfillmentStatus,
			"tracking_number":    order.TrackingNumber,
			"note":               order.Note,
		}).Error
}
