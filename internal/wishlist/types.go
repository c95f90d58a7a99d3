package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmercado/storefront-backend/internal/products"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	Product   products.ProductDTO `json:"product"`
	CreatedAt time.Time           `json:"created_at"`
}

// WishlistPageDTO returns a cursor-paginated wishlist view.
type WishlistPageDTO struct {
	Items      []WishlistItemDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Total      int64             `json:"total"`
}

// WishlistIDsDTO is a lightweight projection containing only product IDs.
type WishlistIDsDTO struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}
