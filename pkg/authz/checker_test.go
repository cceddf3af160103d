package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testProfile struct {
	ID       string `gorm:"primaryKey;column:id"`
	IsActive bool   `gorm:"column:is_active"`
	IsAdmin  bool   `gorm:"column:is_system_admin"`
}

func (testProfile) TableName() string { return "profiles" }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testProfile{}))
	return db
}

func TestProfileCheckerIsAdmin(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&testProfile{ID: "admin", IsActive: true, IsAdmin: true}).Error)
	require.NoError(t, db.Create(&testProfile{ID: "user", IsActive: true}).Error)
	require.NoError(t, db.Create(&testProfile{ID: "former", IsActive: false, IsAdmin: true}).Error)

	checker := NewProfileChecker(db)
	ctx := context.Background()

	ok, err := checker.IsAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.IsAdmin(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deactivated admins lose access.
	ok, err = checker.IsAdmin(ctx, "former")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.IsAdmin(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.IsAdmin(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

type countingChecker struct {
	allowed bool
	err     error
	calls   int
}

func (c *countingChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	c.calls++
	return c.allowed, c.err
}

func TestCachedCheckerMemoizes(t *testing.T) {
	inner := &countingChecker{allowed: true}
	cached := NewCachedChecker(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cached.IsAdmin(ctx, "admin")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedCheckerExpires(t *testing.T) {
	inner := &countingChecker{allowed: true}
	cached := NewCachedChecker(inner, 15*time.Millisecond)
	ctx := context.Background()

	_, err := cached.IsAdmin(ctx, "admin")
	require.NoError(t, err)
	time.Sleep(25 * time.Millisecond)
	_, err = cached.IsAdmin(ctx, "admin")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedCheckerDoesNotCacheErrors(t *testing.T) {
	inner := &countingChecker{err: errors.New("db down")}
	cached := NewCachedChecker(inner, time.Minute)
	ctx := context.Background()

	_, err := cached.IsAdmin(ctx, "admin")
	require.Error(t, err)
	_, err = cached.IsAdmin(ctx, "admin")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestAllowAllAdmitsAnyIdentifiedUser(t *testing.T) {
	handler := RequireAdmin(AllowAll{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("X-User-Id", "anyone")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The identity requirement still holds.
	anon := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, anon)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&testProfile{ID: "admin", IsActive: true, IsAdmin: true}).Error)
	require.NoError(t, db.Create(&testProfile{ID: "user", IsActive: true}).Error)

	handler := RequireAdmin(NewProfileChecker(db))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	check := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		if userID != "" {
			req.Header.Set("X-User-Id", userID)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, check("admin"))
	assert.Equal(t, http.StatusForbidden, check("user"))
	assert.Equal(t, http.StatusUnauthorized, check(""))
}
