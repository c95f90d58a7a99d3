package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/internal/products"
	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

func setupWishlistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT,
  tags TEXT,
  image_urls TEXT,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE wishlist_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(user_id, product_id)
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newWishlistService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), products.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedWishlistProduct(t *testing.T, db *gorm.DB, title string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:            uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Title:         title,
		PriceCents:    1200,
		Currency:      enums.CurrencyUSD,
		StockQuantity: 4,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestAddItemRequiresExistingProduct(t *testing.T) {
	t.Parallel()

	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)

	err := svc.AddItem(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAddItemIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	userID := uuid.New()
	product := seedWishlistProduct(t, db, "Walnut Tray")

	require.NoError(t, svc.AddItem(context.Background(), userID, product.ID))
	require.NoError(t, svc.AddItem(context.Background(), userID, product.ID))

	ids, err := svc.GetWishlistIDs(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, ids.ProductIDs, 1)
	assert.Equal(t, product.ID, ids.ProductIDs[0])
}

func TestRemoveItemIsNoOpWhenAbsent(t *testing.T) {
	t.Parallel()

	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	userID := uuid.New()
	product := seedWishlistProduct(t, db, "Walnut Tray")

	require.NoError(t, svc.AddItem(context.Background(), userID, product.ID))
	require.NoError(t, svc.RemoveItem(context.Background(), userID, product.ID))
	require.NoError(t, svc.RemoveItem(context.Background(), userID, product.ID))

	ids, err := svc.GetWishlistIDs(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, ids.ProductIDs)
}

func TestGetWishlistReturnsProductsAndScopesToUser(t *testing.T) {
	t.Parallel()

	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	userID := uuid.New()
	other := uuid.New()
	mine := seedWishlistProduct(t, db, "Walnut Tray")
	theirs := seedWishlistProduct(t, db, "Brass Hook")

	require.NoError(t, svc.AddItem(context.Background(), userID, mine.ID))
	require.NoError(t, svc.AddItem(context.Background(), other, theirs.ID))

	page, err := svc.GetWishlist(context.Background(), userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].Product.ID)
	assert.Equal(t, "Walnut Tray", page.Items[0].Product.Title)
	assert.Equal(t, int64(1), page.Total)
	assert.Empty(t, page.NextCursor)
}

func TestWishlistValidation(t *testing.T) {
	t.Parallel()

	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)

	_, err := svc.GetWishlist(context.Background(), uuid.Nil, pagination.Params{})
	require.Error(t, err)

	err = svc.AddItem(context.Background(), uuid.New(), uuid.Nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
