package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStore provides database operations for sync jobs.
type JobStore struct {
	db *gorm.DB
}

// NewJobStore creates a new JobStore.
func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// AutoMigrate creates or updates the roster_sync_jobs table.
func (s *JobStore) AutoMigrate() error {
	return s.db.AutoMigrate(&SyncJob{})
}

// Enqueue creates a new queued job. If idempotencyKey is non-empty and a
// non-terminal job with the same key exists, the existing job is returned
// instead of creating a duplicate. Safe for concurrent use.
func (s *JobStore) Enqueue(ctx context.Context, requestedBy, idempotencyKey string) (*SyncJob, error) {
	job := &SyncJob{
		ID:             uuid.New().String(),
		RequestedBy:    requestedBy,
		RequestedAt:    time.Now(),
		State:          JobStateQueued,
		IdempotencyKey: idempotencyKey,
	}

	if idempotencyKey == "" {
		if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, fmt.Errorf("enqueue sync job: %w", err)
		}
		return job, nil
	}

	var result *SyncJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SyncJob
		err := tx.Where("idempotency_key = ? AND state IN ?", idempotencyKey,
			[]JobState{JobStateQueued, JobStateRunning}).First(&existing).Error
		if err == nil {
			result = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("check idempotency key: %w", err)
		}

		// Clear the key on terminal jobs so the unique index doesn't block
		// a fresh run.
		tx.Model(&SyncJob{}).
			Where("idempotency_key = ? AND state IN ?", idempotencyKey,
				[]JobState{JobStateSucceeded, JobStateFailed, JobStateCanceled}).
			Update("idempotency_key", "")

		if err := tx.Create(job).Error; err != nil {
			// Another transaction may have enqueued between check and create.
			var raced SyncJob
			if lookupErr := s.db.Where("idempotency_key = ? AND state IN ?", idempotencyKey,
				[]JobState{JobStateQueued, JobStateRunning}).First(&raced).Error; lookupErr == nil {
				result = &raced
				return nil
			}
			return fmt.Errorf("enqueue sync job: %w", err)
		}
		result = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Claim atomically picks the oldest queued job and transitions it to
// running. Returns nil if no jobs are available.
func (s *JobStore) Claim(maxRetries int) (*SyncJob, error) {
	var job SyncJob

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("state = ? AND attempt_count <= ?", JobStateQueued, maxRetries).
			Order("requested_at ASC").
			Limit(1).
			First(&job).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		now := time.Now()
		return tx.Model(&SyncJob{}).Where("id = ? AND state = ?", job.ID, JobStateQueued).
			Updates(map[string]any{
				"state":         JobStateRunning,
				"started_at":    now,
				"attempt_count": gorm.Expr("attempt_count + 1"),
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim sync job: %w", err)
	}
	if job.ID == "" {
		return nil, nil
	}

	if err := s.db.First(&job, "id = ?", job.ID).Error; err != nil {
		return nil, fmt.Errorf("reload claimed job: %w", err)
	}
	return &job, nil
}

// Complete marks a job as succeeded.
func (s *JobStore) Complete(jobID string, recordsLinked int, durationMs int64) error {
	now := time.Now()
	result := s.db.Model(&SyncJob{}).Where("id = ?", jobID).Updates(map[string]any{
		"state":          JobStateSucceeded,
		"finished_at":    now,
		"records_linked": recordsLinked,
		"duration_ms":    durationMs,
		"message":        fmt.Sprintf("Linked %d employee records", recordsLinked),
	})
	if result.Error != nil {
		return fmt.Errorf("complete sync job: %w", result.Error)
	}
	return nil
}

// Fail marks a job as failed, re-queuing it when attempts remain.
func (s *JobStore) Fail(jobID string, errMsg string, maxRetries int) error {
	var job SyncJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("load job for fail: %w", err)
	}

	updates := map[string]any{
		"last_error":  errMsg,
		"finished_at": time.Now(),
	}
	if job.AttemptCount < maxRetries {
		updates["state"] = JobStateQueued
		updates["started_at"] = nil
		updates["finished_at"] = nil
	} else {
		updates["state"] = JobStateFailed
		updates["message"] = "Max retries exceeded: " + errMsg
	}

	if err := s.db.Model(&SyncJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		return fmt.Errorf("fail sync job: %w", err)
	}
	return nil
}

// Cancel marks a queued job as canceled. Running jobs cannot be canceled.
func (s *JobStore) Cancel(ctx context.Context, jobID string) error {
	result := s.db.WithContext(ctx).Model(&SyncJob{}).
		Where("id = ? AND state = ?", jobID, JobStateQueued).
		Updates(map[string]any{
			"state":       JobStateCanceled,
			"finished_at": time.Now(),
			"message":     "Canceled by user",
		})
	if result.Error != nil {
		return fmt.Errorf("cancel sync job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var job SyncJob
		if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("sync job not found: %s", jobID)
			}
			return fmt.Errorf("check sync job: %w", err)
		}
		return fmt.Errorf("sync job %s is in state %s, only queued jobs can be canceled", jobID, job.State)
	}
	return nil
}

// Get retrieves a job by id. Returns nil when absent.
func (s *JobStore) Get(ctx context.Context, jobID string) (*SyncJob, error) {
	var job SyncJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync job: %w", err)
	}
	return &job, nil
}

// List returns jobs newest first, optionally filtered by state, capped at
// limit.
func (s *JobStore) List(ctx context.Context, state JobState, limit int) ([]SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	q := s.db.WithContext(ctx).Model(&SyncJob{})
	if state != "" {
		q = q.Where("state = ?", state)
	}

	var jobs []SyncJob
	if err := q.Order("requested_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", err)
	}
	return jobs, nil
}

// CleanupStuckJobs re-queues running jobs whose claim is older than
// claimTimeout, for crash recovery.
func (s *JobStore) CleanupStuckJobs(claimTimeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-claimTimeout)
	result := s.db.Model(&SyncJob{}).
		Where("state = ? AND started_at < ?", JobStateRunning, cutoff).
		Updates(map[string]any{
			"state":      JobStateQueued,
			"started_at": nil,
			"last_error": "Timed out (stuck job recovery)",
		})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup stuck sync jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOlderThan removes terminal jobs older than the given cutoff.
func (s *JobStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("state IN ? AND finished_at < ?",
		[]JobState{JobStateSucceeded, JobStateFailed, JobStateCanceled}, cutoff).
		Delete(&SyncJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old sync jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
