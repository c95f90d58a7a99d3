package contact

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

func setupContactTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE contact_messages (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'new',
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func newContactService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestSubmitNormalizesAndStartsNew(t *testing.T) {
	t.Parallel()

	db := setupContactTestDB(t)
	svc := newContactService(t, db)

	dto, err := svc.Submit(context.Background(), SubmitInput{
		Name:    "  Dana Smith  ",
		Email:   " Dana@Example.COM ",
		Subject: "Wholesale pricing",
		Body:    "Do you offer bulk discounts?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana Smith", dto.Name)
	assert.Equal(t, "dana@example.com", dto.Email)
	assert.Equal(t, enums.ContactStatusNew, dto.Status)
}

func TestUpdateStatusWalksTriageStates(t *testing.T) {
	t.Parallel()

	db := setupContactTestDB(t)
	svc := newContactService(t, db)

	dto, err := svc.Submit(context.Background(), SubmitInput{
		Name: "Dana", Email: "dana@example.com", Subject: "s", Body: "b",
	})
	require.NoError(t, err)

	read, err := svc.UpdateStatus(context.Background(), dto.ID, enums.ContactStatusRead)
	require.NoError(t, err)
	assert.Equal(t, enums.ContactStatusRead, read.Status)

	resolved, err := svc.UpdateStatus(context.Background(), dto.ID, enums.ContactStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, enums.ContactStatusResolved, resolved.Status)
}

func TestUpdateStatusValidation(t *testing.T) {
	t.Parallel()

	db := setupContactTestDB(t)
	svc := newContactService(t, db)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), enums.ContactStatus("escalated"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), enums.ContactStatusRead)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListFiltersByStatus(t *testing.T) {
	t.Parallel()

	db := setupContactTestDB(t)
	svc := newContactService(t, db)

	first, err := svc.Submit(context.Background(), SubmitInput{Name: "A", Email: "a@example.com", Subject: "s", Body: "b"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), SubmitInput{Name: "B", Email: "b@example.com", Subject: "s", Body: "b"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), first.ID, enums.ContactStatusResolved)
	require.NoError(t, err)

	resolved := enums.ContactStatusResolved
	page, err := svc.List(context.Background(), &resolved, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)
	assert.Equal(t, int64(1), page.Total)

	all, err := svc.List(context.Background(), nil, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	bogus := enums.ContactStatus("spam")
	_, err = svc.List(context.Background(), &bogus, pagination.Params{})
	require.Error(t, err)
}
