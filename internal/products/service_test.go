package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/db"
	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`CREATE TABLE products (
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
);`).Error)
	return conn
}

func newProductsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn))
	require.NoError(t, err)
	return svc
}

func TestCreateProductDefaultsToActive(t *testing.T) {
	t.Parallel()

	conn := setupProductsTestDB(t)
	svc := newProductsService(t, conn)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		SKU:           "MUG-001",
		Title:         "Ceramic Mug",
		Price:         "25.00",
		StockQuantity: 10,
	})
	require.NoError(t, err)
	assert.True(t, dto.IsActive)
	assert.Equal(t, int64(2500), dto.PriceCents)
}

func TestCreateProductHonorsExplicitInactive(t *testing.T) {
	t.Parallel()

	conn := setupProductsTestDB(t)
	svc := newProductsService(t, conn)

	inactive := false
	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		SKU:           "MUG-002",
		Title:         "Ceramic Mug (draft)",
		Price:         "25.00",
		StockQuantity: 10,
		IsActive:      &inactive,
	})
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	// The row itself must be inactive too, not just the returned shape.
	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	assert.False(t, stored.IsActive, "a draft listing must not go live on insert")

	// And an inactive listing is invisible to buyers.
	_, err = svc.GetProduct(context.Background(), dto.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	t.Parallel()

	conn := setupProductsTestDB(t)
	svc := newProductsService(t, conn)

	input := CreateProductInput{
		SKU:           "MUG-003",
		Title:         "Ceramic Mug",
		Price:         "25.00",
		StockQuantity: 5,
	}
	_, err := svc.CreateProduct(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), input)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestUpdateProductTogglesActive(t *testing.T) {
	t.Parallel()

	conn := setupProductsTestDB(t)
	svc := newProductsService(t, conn)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{
		SKU:           "MUG-004",
		Title:         "Ceramic Mug",
		Price:         "25.00",
		StockQuantity: 5,
	})
	require.NoError(t, err)

	hidden := false
	updated, err := svc.UpdateProduct(context.Background(), created.ID, UpdateProductInput{IsActive: &hidden})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", created.ID).Error)
	assert.False(t, stored.IsActive)
}

func TestUpdateProductPriceCurrency(t *testing.T) {
	t.Parallel()

	conn := setupProductsTestDB(t)
	svc := newProductsService(t, conn)

	created, err := svc.CreateProduct(context.Background(), CreateProductInput{
		SKU:           "MUG-005",
		Title:         "Ceramic Mug",
		Price:         "25.00",
		Currency:      enums.CurrencyUSD,
		StockQuantity: 5,
	})
	require.NoError(t, err)

	price := "19.99"
	updated, err := svc.UpdateProduct(context.Background(), created.ID, UpdateProductInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(1999), updated.PriceCents)

	_, err = svc.UpdateProduct(context.Background(), uuid.New(), UpdateProductInput{Price: &price})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
