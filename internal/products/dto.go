package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
)

// ProductDTO is the full transport shape for a catalog listing. Price is
// rendered as a decimal string; PriceCents stays authoritative.
type ProductDTO struct {
	ID            uuid.UUID      `json:"id"`
	SKU           string         `json:"sku"`
	Title         string         `json:"title"`
	Description   *string        `json:"description,omitempty"`
	Tags          []string       `json:"tags"`
	ImageURLs     []string       `json:"image_urls"`
	PriceCents    int64          `json:"price_cents"`
	Price         string         `json:"price"`
	Currency      enums.Currency `json:"currency"`
	StockQuantity int            `json:"stock_quantity"`
	InStock       bool           `json:"in_stock"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ProductListResult combines one page of products with its next cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Total      int64        `json:"total"`
}

// NewProductDTO converts a persisted product into its transport shape.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}

	tags := append([]string(nil), product.Tags...)
	if tags == nil {
		tags = []string{}
	}
	imageURLs := append([]string(nil), product.ImageURLs...)
	if imageURLs == nil {
		imageURLs = []string{}
	}

	return &ProductDTO{
		ID:            product.ID,
		SKU:           product.SKU,
		Title:         product.Title,
		Description:   product.Description,
		Tags:          tags,
		ImageURLs:     imageURLs,
		PriceCents:    product.PriceCents,
		Price:         FormatPrice(product.PriceCents),
		Currency:      product.Currency,
		StockQuantity: product.StockQuantity,
		InStock:       product.StockQuantity > 0,
		IsActive:      product.IsActive,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

// FormatPrice renders cents as a two-decimal string ("2500" -> "25.00").
func FormatPrice(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// ParsePrice converts a decimal price string into cents, rejecting values
// with sub-cent precision.
func ParsePrice(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, errSubCentPrecision
	}
	return cents.IntPart(), nil
}
