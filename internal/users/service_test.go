package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jmercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/jmercado/storefront-backend/pkg/errors"
	"github.com/jmercado/storefront-backend/pkg/pagination"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func newUsersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: NewRepository(db)})
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, db *gorm.DB, email string) uuid.UUID {
	t.Helper()
	repo := NewRepository(db)
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Renee",
		LastName:     "Alba",
		Role:         enums.UserRoleUser,
	})
	require.NoError(t, err)
	return user.ID
}

func TestGetProfileReturnsSanitizedShape(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	userID := seedUser(t, db, "renee@example.com")

	dto, err := svc.GetProfile(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, dto.ID)
	assert.Equal(t, "renee@example.com", dto.Email)
	assert.Equal(t, "Renee", dto.FirstName)
	assert.True(t, dto.IsActive)
	assert.Equal(t, enums.UserRoleUser, dto.Role)
}

func TestGetProfileUnknownUser(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	_, err := svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfileAppliesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	userID := seedUser(t, db, "partial@example.com")

	first := "Imogen"
	phone := "+15550001111"
	dto, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileDTO{
		FirstName: &first,
		Phone:     &phone,
	})
	require.NoError(t, err)

	assert.Equal(t, "Imogen", dto.FirstName)
	assert.Equal(t, "Alba", dto.LastName)
	require.NotNil(t, dto.Phone)
	assert.Equal(t, "+15550001111", *dto.Phone)
}

func TestUpdateProfileWithNoFieldsIsReadBack(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	userID := seedUser(t, db, "noop@example.com")

	dto, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileDTO{})
	require.NoError(t, err)
	assert.Equal(t, "Renee", dto.FirstName)
}

func TestListUsersPagesNewestFirst(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	for i := 0; i < 3; i++ {
		seedUser(t, db, fmt.Sprintf("buyer%d@example.com", i))
	}

	page, err := svc.ListUsers(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, int64(3), page.Total)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListUsers(context.Background(), pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Users, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, u := range append(page.Users, rest.Users...) {
		assert.False(t, seen[u.ID], "user %s repeated across pages", u.ID)
		seen[u.ID] = true
	}
}

func TestSetUserActiveTogglesFlag(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)
	userID := seedUser(t, db, "moderated@example.com")

	dto, err := svc.SetUserActive(context.Background(), userID, false)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	dto, err = svc.SetUserActive(context.Background(), userID, true)
	require.NoError(t, err)
	assert.True(t, dto.IsActive)
}

func TestSetUserActiveUnknownUser(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	_, err := svc.SetUserActive(context.Background(), uuid.New(), false)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersService(t, db)

	first := "Ghost"
	_, err := svc.UpdateProfile(context.Background(), uuid.New(), UpdateProfileDTO{FirstName: &first})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
