package roster

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *JobStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewJobStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestEnqueueAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, JobStateQueued, job.State)
	assert.Equal(t, "u1", job.RequestedBy)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnqueueIdempotency(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, "u1", "nightly")
	require.NoError(t, err)
	second, err := store.Enqueue(ctx, "u2", "nightly")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "non-terminal job with same key is reused")

	// After the job reaches a terminal state the key is reusable.
	require.NoError(t, store.Complete(first.ID, 0, 0))
	third, err := store.Enqueue(ctx, "u1", "nightly")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestClaimTransitionsToRunning(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	queued, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)

	claimed, err := store.Claim(3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, queued.ID, claimed.ID)
	assert.Equal(t, JobStateRunning, claimed.State)
	assert.Equal(t, 1, claimed.AttemptCount)
	assert.NotNil(t, claimed.StartedAt)

	// Nothing left to claim.
	again, err := store.Claim(3)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestClaimOldestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)

	claimed, err := store.Claim(3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, older.ID, claimed.ID)
}

func TestCompleteRecordsResult(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	_, err = store.Claim(3)
	require.NoError(t, err)

	require.NoError(t, store.Complete(job.ID, 12, 340))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStateSucceeded, got.State)
	assert.Equal(t, 12, got.RecordsLinked)
	assert.EqualValues(t, 340, got.DurationMs)
	assert.NotNil(t, got.FinishedAt)
	assert.True(t, got.IsTerminal())
}

func TestFailRequeuesUntilMaxRetries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)

	// First attempt fails and is re-queued.
	_, err = store.Claim(3)
	require.NoError(t, err)
	require.NoError(t, store.Fail(job.ID, "db gone", 3))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStateQueued, got.State)
	assert.Equal(t, "db gone", got.LastError)

	// Exhaust retries.
	for i := 0; i < 3; i++ {
		claimed, err := store.Claim(3)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		require.NoError(t, store.Fail(job.ID, "db still gone", 3))
	}

	got, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStateFailed, got.State)
	assert.Contains(t, got.Message, "Max retries exceeded")
}

func TestCancelQueuedOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, job.ID))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStateCanceled, got.State)

	// A running job cannot be canceled.
	running, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	_, err = store.Claim(3)
	require.NoError(t, err)
	assert.Error(t, store.Cancel(ctx, running.ID))

	assert.Error(t, store.Cancel(ctx, "missing"))
}

func TestListNewestFirstWithStateFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, first.ID))

	jobs, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)

	queued, err := store.List(ctx, JobStateQueued, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, second.ID, queued[0].ID)
}

func TestCleanupStuckJobs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	_, err = store.Claim(3)
	require.NoError(t, err)

	// Backdate the claim beyond the timeout.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, store.db.Model(&SyncJob{}).Where("id = ?", job.ID).
		Update("started_at", old).Error)

	recovered, err := store.CleanupStuckJobs(10 * time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, recovered)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStateQueued, got.State)
}

func TestDeleteOlderThan(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, job.ID))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, store.db.Model(&SyncJob{}).Where("id = ?", job.ID).
		Update("finished_at", old).Error)

	// A fresh queued job is never pruned.
	keep, err := store.Enqueue(ctx, "u1", "")
	require.NoError(t, err)

	deleted, err := store.DeleteOlderThan(time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	got, err := store.Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
