package checkout

import (
	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/pkg/types"
)

// CheckoutInput captures the payload submitted when starting a checkout.
type CheckoutInput struct {
	ShippingAddress *types.Address `json:"shipping_address,omitempty" validate:"omitempty"`
}

// CheckoutResult points the client at the hosted payment page.
type CheckoutResult struct {
	OrderID           uuid.UUID `json:"order_id"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	CheckoutURL       string    `json:"checkout_url"`
	TotalCents        int64     `json:"total_cents"`
	Total             string    `json:"total"`
}
