package roster

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Syncer executes one roster synchronization: linking imported employee
// records to their profiles. Satisfied by scorecard.Store.
type Syncer interface {
	LinkEmployeeRecords(ctx context.Context) (linked int64, err error)
}

// WorkerPool processes queued sync jobs using a pool of goroutines.
type WorkerPool struct {
	store  *JobStore
	syncer Syncer
	cfg    *Config
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. A nil logger falls back to
// slog.Default().
func NewWorkerPool(store *JobStore, syncer Syncer, cfg *Config, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		store:  store,
		syncer: syncer,
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the worker pool. It spawns cfg.Concurrency goroutines, each
// polling for jobs, blocks until the context is cancelled, then waits for
// all workers to finish.
func (wp *WorkerPool) Run(ctx context.Context) {
	if wp.store == nil || !wp.cfg.Enabled {
		wp.logger.Info("roster sync worker pool disabled")
		return
	}

	wp.logger.Info("roster sync worker pool starting",
		"concurrency", wp.cfg.Concurrency,
		"maxRetries", wp.cfg.MaxRetries,
		"pollInterval", wp.cfg.PollInterval.String())

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		wp.cleanupLoop(ctx)
	}()

	for i := 0; i < wp.cfg.Concurrency; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			wp.workerLoop(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	wp.logger.Info("roster sync worker pool shutting down, waiting for workers to finish")
	wp.wg.Wait()
	wp.logger.Info("roster sync worker pool stopped")
}

func (wp *WorkerPool) workerLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(wp.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wp.processOne(ctx, workerID)
		}
	}
}

// processOne tries to claim and process a single job.
func (wp *WorkerPool) processOne(ctx context.Context, workerID int) {
	job, err := wp.store.Claim(wp.cfg.MaxRetries)
	if err != nil {
		wp.logger.Error("failed to claim sync job", "workerID", workerID, "error", err)
		return
	}
	if job == nil {
		return
	}

	wp.logger.Info("processing sync job",
		"workerID", workerID,
		"jobID", job.ID,
		"requestedBy", job.RequestedBy,
		"attempt", job.AttemptCount)

	start := time.Now()
	linked, err := wp.syncer.LinkEmployeeRecords(ctx)
	if err != nil {
		wp.logger.Error("sync job failed",
			"workerID", workerID, "jobID", job.ID, "error", err)
		if failErr := wp.store.Fail(job.ID, err.Error(), wp.cfg.MaxRetries); failErr != nil {
			wp.logger.Error("failed to mark sync job as failed", "jobID", job.ID, "error", failErr)
		}
		return
	}

	duration := time.Since(start)
	wp.logger.Info("sync job completed",
		"workerID", workerID,
		"jobID", job.ID,
		"recordsLinked", linked,
		"duration", duration.String())

	if err := wp.store.Complete(job.ID, int(linked), duration.Milliseconds()); err != nil {
		wp.logger.Error("failed to mark sync job as complete", "jobID", job.ID, "error", err)
	}
}

// cleanupLoop periodically recovers stuck jobs and prunes old terminal ones.
func (wp *WorkerPool) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if wp.cfg.ClaimTimeout > 0 {
				recovered, err := wp.store.CleanupStuckJobs(wp.cfg.ClaimTimeout)
				if err != nil {
					wp.logger.Error("failed to cleanup stuck sync jobs", "error", err)
				} else if recovered > 0 {
					wp.logger.Info("recovered stuck sync jobs", "count", recovered)
				}
			}

			if wp.cfg.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -wp.cfg.RetentionDays)
				deleted, err := wp.store.DeleteOlderThan(cutoff)
				if err != nil {
					wp.logger.Error("failed to delete old sync jobs", "error", err)
				} else if deleted > 0 {
					wp.logger.Info("deleted old sync jobs", "count", deleted)
				}
			}
		}
	}
}
