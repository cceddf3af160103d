package roster

import (
	"os"
	"strconv"
	"time"
)

// Config controls the sync queue and worker behavior.
type Config struct {
	Concurrency   int           // Max concurrent workers. Default 1.
	MaxRetries    int           // Max retry attempts per job. Default 3.
	PollInterval  time.Duration // How often workers poll for new jobs. Default 5s.
	ClaimTimeout  time.Duration // Max time a job can run before considered stuck. Default 10m.
	RetentionDays int           // How long to keep terminal jobs. Default 7.
	Enabled       bool          // Whether the sync worker is active. Default true.
}

// DefaultConfig returns the default sync configuration. Sync runs are
// serialized by default; two concurrent linkers would race on the same
// records for no gain.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:   1,
		MaxRetries:    3,
		PollInterval:  5 * time.Second,
		ClaimTimeout:  10 * time.Minute,
		RetentionDays: 7,
		Enabled:       true,
	}
}

// ConfigFromEnv loads config from environment variables:
// SCORECARD_SYNC_CONCURRENCY, SCORECARD_SYNC_MAX_RETRIES,
// SCORECARD_SYNC_POLL_INTERVAL_SECONDS, SCORECARD_SYNC_CLAIM_TIMEOUT_MINUTES,
// SCORECARD_SYNC_RETENTION_DAYS, SCORECARD_SYNC_ENABLED.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SCORECARD_SYNC_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("SCORECARD_SYNC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("SCORECARD_SYNC_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SCORECARD_SYNC_CLAIM_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClaimTimeout = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("SCORECARD_SYNC_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("SCORECARD_SYNC_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
