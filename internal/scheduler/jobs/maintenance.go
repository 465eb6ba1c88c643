package jobs

import (
	"context"

	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// CacheSweepJob evicts expired scores from the in-process cache
type CacheSweepJob struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(e *engine.Engine, log *logger.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		engine: e,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Schedule returns the cron schedule (every 10 minutes)
func (j *CacheSweepJob) Schedule() string {
	return "0 */10 * * * *"
}

// Run executes the sweep
func (j *CacheSweepJob) Run(ctx context.Context) error {
	if count := j.engine.SweepScoreCache(); count > 0 {
		j.logger.WithField("removed", count).Info("Score cache sweep completed")
	}
	return nil
}
