package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// FlagSnapshotJob records detector output for every watchlist entity so
// flag trends have history between score computations.
type FlagSnapshotJob struct {
	engine   *engine.Engine
	targets  Targets
	schedule string
	logger   *logger.Logger
}

// NewFlagSnapshotJob creates a flag snapshot job
func NewFlagSnapshotJob(e *engine.Engine, targets Targets, schedule string, log *logger.Logger) *FlagSnapshotJob {
	return &FlagSnapshotJob{
		engine:   e,
		targets:  targets,
		schedule: schedule,
		logger:   log.WithField("job", "flag_snapshot"),
	}
}

// Name returns the job name
func (j *FlagSnapshotJob) Name() string {
	return "flag_snapshot"
}

// Schedule returns the cron schedule
func (j *FlagSnapshotJob) Schedule() string {
	return j.schedule
}

// Run executes the snapshot
func (j *FlagSnapshotJob) Run(ctx context.Context) error {
	ids, err := j.targets(ctx)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}

	var (
		flagged int
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := j.engine.DetectFlags(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(report.Flags) > 0 {
			flagged++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"entities": len(ids),
		"flagged":  flagged,
		"failed":   len(errs),
	}).Info("Flag snapshot completed")

	return errors.Join(errs...)
}
