package wishlist

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (id, user_id, product_id, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id, product_id) DO NOTHING`, uuid.New(), userID, productID).
		Error
}

// RemoveItem deletes the user-product like if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns a cursor page of wishlist products for a user.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) (WishlistPageDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursorValue := strings.TrimSpace(params.Cursor)
	decodedCursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return WishlistPageDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ?", userID)

	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.WishlistItem
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return WishlistPageDTO{}, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > normalizedLimit {
		resultRows = rows[:normalizedLimit]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	productIDs := make([]uuid.UUID, 0, len(resultRows))
	for _, row := range resultRows {
		productIDs = append(productIDs, row.ProductID)
	}

	productsByID := map[uuid.UUID]models.Product{}
	if len(productIDs) > 0 {
		var productRows []models.Product
		if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&productRows).Error; err != nil {
			return WishlistPageDTO{}, err
		}
		for _, p := range productRows {
			productsByID[p.ID] = p
		}
	}

	items := make([]WishlistItemDTO, 0, len(resultRows))
	for _, row := range resultRows {
		product, ok := productsByID[row.ProductID]
		if !ok {
			continue
		}
		items = append(items, WishlistItemDTO{
			Product:   *products.NewProductDTO(&product),
			CreatedAt: row.CreatedAt,
		})
	}

	total, err := r.countItems(ctx, userID)
	if err != nil {
		return WishlistPageDTO{}, err
	}

	return WishlistPageDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

// ListItemIDs returns every product ID the user has liked.
func (r *Repository) ListItemIDs(ctx context.Context, userID uuid.UUID) (WishlistIDsDTO, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("product_id", &ids).Error
	if err != nil {
		return WishlistIDsDTO{}, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return WishlistIDsDTO{ProductIDs: ids}, nil
}

func (r *Repository) countItems(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}
