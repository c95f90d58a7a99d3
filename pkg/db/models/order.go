package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/pkg/enums"
	"github.com/jmercado/storefront-backend/pkg/types"
)

// Order snapshots one checkout attempt. The unique indexes on the Stripe
// session and payment intent ids are what makes payment confirmation
// at-most-once: a second order for the same session cannot be inserted.
type Order struct {
	ID                      uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                  uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	TotalCents              int64                   `gorm:"column:total_cents;not null"`
	Currency                enums.Currency          `gorm:"column:currency;type:text;not null;default:'USD'"`
	ShippingAddress         *types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	StripeCheckoutSessionID string                  `gorm:"column:stripe_checkout_session_id;not null;uniqueIndex"`
	StripePaymentIntentID   *string                 `gorm:"column:stripe_payment_intent_id;uniqueIndex"`
	PaymentStatus           enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	FulfillmentStatus       enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'pending'"`
	TrackingNumber          *string                 `gorm:"column:tracking_number"`
	Note                    *string                 `gorm:"column:note"`
	PaidAt                  *time.Time              `gorm:"column:paid_at"`
	Items                   []OrderLineItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
