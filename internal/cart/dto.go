package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/db/models"
)

// CartItemDTO is one line of the cart as returned to clients.
type CartItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	Subtotal       string    `json:"subtotal"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CartDTO is the cart plus its display total. The total here is advisory;
// checkout recomputes from current product prices.
type CartDTO struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	Items      []CartItemDTO `json:"items"`
	TotalCents int64         `json:"total_cents"`
	Total      string        `json:"total"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewCartDTO converts a persisted cart into its transport shape.
func NewCartDTO(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}

	items := make([]CartItemDTO, 0, len(cart.Items))
	var total int64
	for _, item := range cart.Items {
		subtotal := item.UnitPriceCents * int64(item.Quantity)
		total += subtotal
		items = append(items, CartItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      products.FormatPrice(item.UnitPriceCents),
			SubtotalCents:  subtotal,
			Subtotal:       products.FormatPrice(subtotal),
			CreatedAt:      item.CreatedAt,
			UpdatedAt:      item.UpdatedAt,
		})
	}

	return &CartDTO{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalCents: total,
		Total:      products.FormatPrice(total),
		UpdatedAt:  cart.UpdatedAt,
	}
}
