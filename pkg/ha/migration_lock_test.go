package ha

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Shared cache so all goroutines see the same in-memory database.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestMigrationLockerNilDB(t *testing.T) {
	locker := NewMigrationLocker(nil)

	called := false
	require.NoError(t, locker.WithLock(context.Background(), func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestFallbackLockRunsAndReleases(t *testing.T) {
	db := setupTestDB(t)
	locker := NewMigrationLocker(db)

	called := false
	require.NoError(t, locker.WithLock(context.Background(), func() error {
		called = true
		return nil
	}))
	assert.True(t, called)

	var count int64
	require.NoError(t, db.Model(&migrationLockRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "lock released after WithLock")
}

func TestFallbackLockReleasesOnError(t *testing.T) {
	db := setupTestDB(t)
	locker := NewMigrationLocker(db)

	boom := errors.New("migration failed")
	err := locker.WithLock(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&migrationLockRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "lock released after error")
}

func TestFallbackLockSerializes(t *testing.T) {
	db := setupTestDB(t)
	locker := NewMigrationLocker(db)

	var concurrent, maxConcurrent atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock(context.Background(), func() error {
				cur := concurrent.Add(1)
				for {
					prev := maxConcurrent.Load()
					if cur <= prev || maxConcurrent.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				concurrent.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxConcurrent.Load(), int32(1))
}

func TestFallbackLockContextCancellation(t *testing.T) {
	db := setupTestDB(t)
	locker := NewMigrationLocker(db)

	err := locker.WithLock(context.Background(), func() error {
		// While holding the lock, a second caller with a cancelled context
		// must give up instead of blocking.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		inner := locker.WithLock(ctx, func() error {
			t.Error("should not have acquired the lock")
			return nil
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)
}
