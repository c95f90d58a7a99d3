package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/db/models"
	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  shipping_address TEXT,
  stripe_checkout_session_id TEXT NOT NULL UNIQUE,
  stripe_payment_intent_id TEXT UNIQUE,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  fulfillment_status TEXT NOT NULL DEFAULT 'pending',
  tracking_number TEXT,
  note TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func createOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, payment enums.PaymentStatus, fulfillment enums.FulfillmentStatus, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:                      uuid.New(),
		UserID:                  userID,
		TotalCents:              5000,
		Currency:                enums.CurrencyUSD,
		StripeCheckoutSessionID: "cs_test_" + uuid.NewString(),
		PaymentStatus:           payment,
		FulfillmentStatus:       fulfillment,
		CreatedAt:               created,
		UpdatedAt:               created,
	}
	if payment == enums.PaymentStatusPaid {
		paidAt := created
		order.PaidAt = &paidAt
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to enums.FulfillmentStatus
		want     bool
	}{
		{enums.FulfillmentStatusPending, enums.FulfillmentStatusProcessing, true},
		{enums.FulfillmentStatusPending, enums.FulfillmentStatusCancelled, true},
		{enums.FulfillmentStatusPending, enums.FulfillmentStatusShipped, false},
		{enums.FulfillmentStatusPending, enums.FulfillmentStatusDelivered, false},
		{enums.FulfillmentStatusProcessing, enums.FulfillmentStatusShipped, true},
		{enums.FulfillmentStatusProcessing, enums.FulfillmentStatusCancelled, true},
		{enums.FulfillmentStatusProcessing, enums.FulfillmentStatusDelivered, false},
		{enums.FulfillmentStatusShipped, enums.FulfillmentStatusDelivered, true},
		// A carrier return or an intercepted parcel can still cancel a
		// shipped order; only the terminal states are immovable.
		{enums.FulfillmentStatusShipped, enums.FulfillmentStatusCancelled, true},
		{enums.FulfillmentStatusDelivered, enums.FulfillmentStatusCancelled, false},
		{enums.FulfillmentStatusCancelled, enums.FulfillmentStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateStatusRejectsSkippedStep(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	order := createOrder(t, db, uuid.New(), enums.PaymentStatusPaid, enums.FulfillmentStatusPending, time.Now().UTC())

	_, err = svc.UpdateStatus(context.Background(), order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusShipped})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var fresh models.Order
	require.NoError(t, db.First(&fresh, "id = ?", order.ID).Error)
	assert.Equal(t, enums.FulfillmentStatusPending, fresh.FulfillmentStatus)
}

func TestUpdateStatusRejectsUnpaidOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	order := createOrder(t, db, uuid.New(), enums.PaymentStatusPending, enums.FulfillmentStatusPending, time.Now().UTC())

	_, err = svc.UpdateStatus(context.Background(), order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusProcessing})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusAllowsCancellingUnpaidOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	order := createOrder(t, db, uuid.New(), enums.PaymentStatusPending, enums.FulfillmentStatusPending, time.Now().UTC())

	result, err := svc.UpdateStatus(context.Background(), order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusCancelled, result.FulfillmentStatus)
}

func TestUpdateStatusWalksFulfillmentFlow(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	order := createOrder(t, db, uuid.New(), enums.PaymentStatusPaid, enums.FulfillmentStatusPending, time.Now().UTC())

	tracking := "1Z999AA10123456784"
	result, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusProcessing, result.FulfillmentStatus)

	result, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusShipped, TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusShipped, result.FulfillmentStatus)
	require.NotNil(t, result.TrackingNumber)
	assert.Equal(t, tracking, *result.TrackingNumber)

	result, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusDelivered, result.FulfillmentStatus)

	// Delivered is terminal.
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: enums.FulfillmentStatusCancelled})
	require.Error(t, err)
}

func TestGetUserOrderHidesOtherBuyers(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	owner := uuid.New()
	order := createOrder(t, db, owner, enums.PaymentStatusPaid, enums.FulfillmentStatusPending, time.Now().UTC())

	_, err = svc.GetUserOrder(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code(), "ownership failures must read as not found")

	got, err := svc.GetUserOrder(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestListUserOrdersPaginates(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	userID := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		createOrder(t, db, userID, enums.PaymentStatusPaid, enums.FulfillmentStatusPending, base.Add(time.Duration(i)*time.Hour))
	}
	createOrder(t, db, uuid.New(), enums.PaymentStatusPaid, enums.FulfillmentStatusPending, base)

	page, err := svc.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(3), page.Total)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)
}
