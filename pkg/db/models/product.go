package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jmercado/storefront-backend/pkg/enums"
)

// Product represents the canonical catalog listing. PriceCents is the
// authoritative unit price; StockQuantity is only mutated by payment
// confirmation through an atomic decrement.
type Product struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU           string         `gorm:"column:sku;not null;uniqueIndex"`
	Title         string         `gorm:"column:title;not null"`
	Description   *string        `gorm:"column:description"`
	Tags          pq.StringArray `gorm:"column:tags;type:text[]"`
	ImageURLs     pq.StringArray `gorm:"column:image_urls;type:text[]"`
	PriceCents    int64          `gorm:"column:price_cents;not null"`
	Currency      enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	StockQuantity int            `gorm:"column:stock_quantity;not null;default:0"`
	IsActive      bool           `gorm:"column:is_active;not null"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
