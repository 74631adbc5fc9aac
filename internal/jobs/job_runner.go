package jobs

import (
	"context"
	"time"

	"gatekeeper-backend/internal/config"
	"gatekeeper-backend/internal/logger"
	"gatekeeper-backend/internal/service"
)

// JobRunner coordinates the scheduled review maintenance jobs
type JobRunner struct {
	maintenance service.MaintenanceService
	config      *config.Config
	timeout     time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(maintenance service.MaintenanceService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		maintenance: maintenance,
		config:      cfg,
		timeout:     time.Minute,
	}
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery. It reports
// whether the job finished without panicking.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			ok = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	start := time.Now()
	logger.Info("Starting job", "job", jobName)
	jobFunc(ctx)
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return true
}

// RunAll runs every maintenance job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReleaseStaleClaims()
}
