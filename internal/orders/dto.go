package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	"github.com/jmercado/storefront-backend/pkg/types"
)

// OrderLineItemDTO is one immutable line of an order.
type OrderLineItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	UnitPrice      string     `json:"unit_price"`
	SubtotalCents  int64      `json:"subtotal_cents"`
}

// OrderDTO is the transport shape of one order.
type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	UserID            uuid.UUID               `json:"user_id"`
	TotalCents        int64                   `json:"total_cents"`
	Total             string                  `json:"total"`
	Currency          enums.Currency          `json:"currency"`
	ShippingAddress   *types.Address          `json:"shipping_address,omitempty"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	TrackingNumber    *string                 `json:"tracking_number,omitempty"`
	Note              *string                 `json:"note,omitempty"`
	PaidAt            *time.Time              `json:"paid_at,omitempty"`
	Items             []OrderLineItemDTO      `json:"items"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// OrderListResult combines one page of orders with its next cursor.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Total      int64      `json:"total"`
}

// UpdateStatusInput carries an admin's fulfillment status change.
type UpdateStatusInput struct {
	Status         enums.FulfillmentStatus `json:"status" validate:"required"`
	TrackingNumber *string                 `json:"tracking_number,omitempty"`
	Note           *string                 `json:"note,omitempty"`
}

// NewOrderDTO converts a persisted order into its transport shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	items := make([]OrderLineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderLineItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      products.FormatPrice(item.UnitPriceCents),
			SubtotalCents:  item.UnitPriceCents * int64(item.Quantity),
		})
	}

	return &OrderDTO{
		ID:                order.ID,
		UserID:            order.UserID,
		TotalCents:        order.TotalCents,
		Total:             products.FormatPrice(order.TotalCents),
		Currency:          order.Currency,
		ShippingAddress:   order.ShippingAddress,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		TrackingNumber:    order.TrackingNumber,
		Note:              order.Note,
		PaidAt:            order.PaidAt,
		Items:             items,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}
