// Package engine is the single entry point the API, CLI and scheduler use to
// reach the analytics components.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
	"github.com/m-a-n-a-v/vettr/backend/internal/reconcile"
	"github.com/m-a-n-a-v/vettr/backend/internal/redflags"
	"github.com/m-a-n-a-v/vettr/backend/internal/scoring"
	"github.com/m-a-n-a-v/vettr/backend/internal/trend"
)

// Engine wires the detector, scorer and trend analyzer together
type Engine struct {
	detector *redflags.Detector
	scorer   *scoring.Scorer
	analyzer *trend.Analyzer
	history  contracts.HistoryStore
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates an engine over already-built components.
// history may be nil, in which case DetectFlags records nothing.
func New(detector *redflags.Detector, scorer *scoring.Scorer, analyzer *trend.Analyzer, history contracts.HistoryStore, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		detector: detector,
		scorer:   scorer,
		analyzer: analyzer,
		history:  history,
		metrics:  m,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// FlagReport is a detection run with its severity
type FlagReport struct {
	EntityID   string             `json:"entity_id"`
	Flags      contracts.FlagSet  `json:"flags"`
	TotalScore float64            `json:"total_score"`
	Severity   contracts.Severity `json:"severity"`
}

// DetectFlags runs the detector and records its output to flag history
func (e *Engine) DetectFlags(ctx context.Context, entityID string) (*FlagReport, error) {
	flags, err := e.detector.Detect(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("detect flags %s: %w", entityID, err)
	}

	for _, f := range flags {
		e.metrics.FlagDetected(string(f.Kind))
	}

	if e.history != nil && len(flags) > 0 {
		if err := e.history.AppendFlags(ctx, contracts.NewFlagRecords(flags)); err != nil {
			e.log.Error().Err(err).Str("entity_id", entityID).Msg("append flag history failed")
		}
	}

	return &FlagReport{
		EntityID:   entityID,
		Flags:      flags,
		TotalScore: flags.TotalScore(),
		Severity:   redflags.Severity(flags),
	}, nil
}

// Severity buckets an already-detected flag set
func (e *Engine) Severity(flags contracts.FlagSet) contracts.Severity {
	return redflags.Severity(flags)
}

// ComputeScore returns the composite score, cached for the scorer TTL
func (e *Engine) ComputeScore(ctx context.Context, entityID string) (*contracts.CompositeScore, error) {
	return e.scorer.Score(ctx, entityID)
}

// ScoreTrend analyzes score history
func (e *Engine) ScoreTrend(ctx context.Context, entityID string) (*contracts.TrendResult, error) {
	return e.analyzer.ScoreTrend(ctx, entityID)
}

// FlagTrend analyzes flag history
func (e *Engine) FlagTrend(ctx context.Context, entityID string) (*contracts.TrendResult, error) {
	return e.analyzer.FlagTrend(ctx, entityID)
}

// InvalidateScoreCache drops one cached score
func (e *Engine) InvalidateScoreCache(ctx context.Context, entityID string) error {
	return e.scorer.Invalidate(ctx, entityID)
}

// InvalidateAllScores drops every cached score
func (e *Engine) InvalidateAllScores(ctx context.Context) error {
	return e.scorer.InvalidateAll(ctx)
}

// SweepScoreCache evicts expired scores held in process
func (e *Engine) SweepScoreCache() int {
	return e.scorer.SweepStale()
}

// ReconcileScores resolves cached scores against remote copies
func (e *Engine) ReconcileScores(ctx context.Context, remotes []scoring.RemoteScore, strategy reconcile.Strategy) (reconcile.Batch[contracts.CompositeScore], error) {
	batch, err := e.scorer.Reconcile(ctx, remotes, strategy)
	if err != nil {
		e.log.Error().Err(err).Str("strategy", string(strategy)).Msg("score reconciliation incomplete")
	}
	return batch, err
}
