// Package roster runs the background synchronization between the imported
// HR employee records and the profile table. Imports arrive with the
// manager identified only by email; sync jobs link each record to its
// profile so hierarchy lookups can resolve through user ids.
package roster

import (
	"time"
)

// JobState represents the lifecycle state of a sync job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

// SyncJob is the GORM model for one roster synchronization run.
type SyncJob struct {
	ID             string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RequestedBy    string     `gorm:"column:requested_by;not null" json:"requestedBy"`
	RequestedAt    time.Time  `gorm:"column:requested_at;not null" json:"requestedAt"`
	State          JobState   `gorm:"column:state;index:idx_sync_job_state;not null;default:queued" json:"state"`
	Message        string     `gorm:"column:message" json:"message,omitempty"`
	StartedAt      *time.Time `gorm:"column:started_at" json:"startedAt,omitempty"`
	FinishedAt     *time.Time `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	AttemptCount   int        `gorm:"column:attempt_count;default:0" json:"attemptCount"`
	LastError      string     `gorm:"column:last_error" json:"lastError,omitempty"`
	IdempotencyKey string     `gorm:"column:idempotency_key;uniqueIndex:idx_sync_job_idemp_key,where:idempotency_key <> ''" json:"-"`
	RecordsLinked  int        `gorm:"column:records_linked" json:"recordsLinked"`
	DurationMs     int64      `gorm:"column:duration_ms" json:"durationMs"`
}

// TableName returns the GORM table name.
func (SyncJob) TableName() string { return "roster_sync_jobs" }

// IsTerminal returns true if the job is in a terminal state.
func (j *SyncJob) IsTerminal() bool {
	switch j.State {
	case JobStateSucceeded, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}
