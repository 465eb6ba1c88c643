package jobs

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// ScoreRefreshJob recomputes the composite score of every watchlist entity.
// Each entity is invalidated first so the run always reaches the sources.
// ⭐ SSOT: 점수 일괄 갱신 스케줄은 이 Job에서만
type ScoreRefreshJob struct {
	engine   *engine.Engine
	targets  Targets
	limiter  *rate.Limiter
	schedule string
	logger   *logger.Logger
}

// NewScoreRefreshJob creates a score refresh job throttled to perSecond computations
func NewScoreRefreshJob(e *engine.Engine, targets Targets, schedule string, perSecond float64, log *logger.Logger) *ScoreRefreshJob {
	return &ScoreRefreshJob{
		engine:   e,
		targets:  targets,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		schedule: schedule,
		logger:   log.WithField("job", "score_refresh"),
	}
}

// Name returns the job name
func (j *ScoreRefreshJob) Name() string {
	return "score_refresh"
}

// Schedule returns the cron schedule
func (j *ScoreRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh. Unknown entities are skipped; any other failure
// is collected and returned after the remaining entities were processed.
func (j *ScoreRefreshJob) Run(ctx context.Context) error {
	ids, err := j.targets(ctx)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}

	j.logger.WithField("entities", len(ids)).Info("Starting score refresh")

	var (
		refreshed, skipped int
		errs               []error
	)
	for _, id := range ids {
		if err := j.limiter.Wait(ctx); err != nil {
			return errors.Join(append(errs, err)...)
		}

		if err := j.engine.InvalidateScoreCache(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", id, err))
			continue
		}

		if _, err := j.engine.ComputeScore(ctx, id); err != nil {
			if errors.Is(err, contracts.ErrNotFound) {
				skipped++
				j.logger.WithField("entity_id", id).Warn("Entity not found, skipped")
				continue
			}
			errs = append(errs, fmt.Errorf("score %s: %w", id, err))
			continue
		}
		refreshed++
	}

	j.logger.WithFields(map[string]interface{}{
		"refreshed": refreshed,
		"skipped":   skipped,
		"failed":    len(errs),
	}).Info("Score refresh completed")

	return errors.Join(errs...)
}
