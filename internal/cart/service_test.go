package cart

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
)

func setupCartTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(cart_id, product_id)
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), products.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedCartProduct(t *testing.T, db *gorm.DB, priceCents int64, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:            uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Title:         "Linen Apron",
		PriceCents:    priceCents,
		Currency:      enums.CurrencyUSD,
		StockQuantity: 10,
		IsActive:      active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, code, typed.Code())
}

func TestGetCartCreatesOnFirstAccess(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()

	dto, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, dto.UserID)
	assert.Empty(t, dto.Items)
	assert.Equal(t, "0.00", dto.Total)

	// Second read returns the same cart row.
	again, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, again.ID)
}

func TestAddItemValidatesQuantityAndProduct(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, uuid.New(), 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(context.Background(), userID, uuid.Nil, 1)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(context.Background(), userID, uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	inactive := seedCartProduct(t, db, 2500, false)
	_, err = svc.AddItem(context.Background(), userID, inactive.ID, 1)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddItemSnapshotsCurrentPrice(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()
	product := seedCartProduct(t, db, 2500, true)

	dto, err := svc.AddItem(context.Background(), userID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, int64(2500), dto.Items[0].UnitPriceCents)
	assert.Equal(t, "25.00", dto.Items[0].UnitPrice)
	assert.Equal(t, int64(5000), dto.TotalCents)

	// Re-adding the same product replaces the line and refreshes the
	// snapshot from the catalog.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price_cents", 3000).Error)
	dto, err = svc.AddItem(context.Background(), userID, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 3, dto.Items[0].Quantity)
	assert.Equal(t, int64(3000), dto.Items[0].UnitPriceCents)
	assert.Equal(t, int64(9000), dto.TotalCents)
}

func TestUpdateItemQuantity(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()
	product := seedCartProduct(t, db, 1500, true)

	_, err := svc.AddItem(context.Background(), userID, product.ID, 1)
	require.NoError(t, err)

	dto, err := svc.UpdateItem(context.Background(), userID, product.ID, 4)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 4, dto.Items[0].Quantity)
	assert.Equal(t, int64(6000), dto.TotalCents)

	_, err = svc.UpdateItem(context.Background(), userID, product.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	other := seedCartProduct(t, db, 900, true)
	_, err = svc.UpdateItem(context.Background(), userID, other.ID, 2)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveItemAndClear(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	userID := uuid.New()
	first := seedCartProduct(t, db, 1000, true)
	second := seedCartProduct(t, db, 2000, true)

	_, err := svc.AddItem(context.Background(), userID, first.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, second.ID, 1)
	require.NoError(t, err)

	dto, err := svc.RemoveItem(context.Background(), userID, first.ID)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, second.ID, dto.Items[0].ProductID)

	// Removing a product that is not in the cart is a no-op.
	dto, err = svc.RemoveItem(context.Background(), userID, first.ID)
	require.NoError(t, err)
	assert.Len(t, dto.Items, 1)

	dto, err = svc.ClearCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Equal(t, int64(0), dto.TotalCents)
}
