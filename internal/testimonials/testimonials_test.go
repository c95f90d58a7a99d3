package testimonials

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

func setupTestimonialsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE testimonials (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  approved INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func newTestimonialsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestSubmitCreatesUnapproved(t *testing.T) {
	t.Parallel()

	db := setupTestimonialsTestDB(t)
	svc := newTestimonialsService(t, db)
	userID := uuid.New()

	dto, err := svc.Submit(context.Background(), userID, SubmitInput{
		Rating: 5,
		Title:  "  Lovely mug  ",
		Body:   "Holds coffee admirably.",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, dto.UserID)
	assert.Equal(t, "Lovely mug", dto.Title)
	assert.False(t, dto.Approved)
}

func TestSubmitRejectsOutOfRangeRating(t *testing.T) {
	t.Parallel()

	db := setupTestimonialsTestDB(t)
	svc := newTestimonialsService(t, db)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{Rating: rating, Title: "x", Body: "y"})
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestListApprovedHidesPendingRows(t *testing.T) {
	t.Parallel()

	db := setupTestimonialsTestDB(t)
	svc := newTestimonialsService(t, db)

	pending, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{Rating: 4, Title: "Pending", Body: "b"})
	require.NoError(t, err)
	approved, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{Rating: 5, Title: "Approved", Body: "b"})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), approved.ID)
	require.NoError(t, err)

	publicPage, err := svc.ListApproved(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, publicPage.Items, 1)
	assert.Equal(t, approved.ID, publicPage.Items[0].ID)
	assert.True(t, publicPage.Items[0].Approved)

	adminPage, err := svc.ListAll(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, adminPage.Items, 2)
	assert.Equal(t, int64(2), adminPage.Total)

	ids := []uuid.UUID{adminPage.Items[0].ID, adminPage.Items[1].ID}
	assert.Contains(t, ids, pending.ID)
	assert.Contains(t, ids, approved.ID)
}

func TestApproveUnknownTestimonial(t *testing.T) {
	t.Parallel()

	db := setupTestimonialsTestDB(t)
	svc := newTestimonialsService(t, db)

	_, err := svc.Approve(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestDeleteRemovesRow(t *testing.T) {
	t.Parallel()

	db := setupTestimonialsTestDB(t)
	svc := newTestimonialsService(t, db)

	dto, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{Rating: 3, Title: "Meh", Body: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), dto.ID))

	err = svc.Delete(context.Background(), dto.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
