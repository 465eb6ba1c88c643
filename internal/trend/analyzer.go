// Package trend classifies score and flag history into trend directions.
package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

const (
	window      = 30 * 24 * time.Hour
	week        = 7 * 24 * time.Hour
	windowWeeks = float64(window) / float64(week)

	scoreThreshold = 5 // |delta| above this moves the direction

	improvingRatio = 0.9
	worseningRatio = 1.1
)

// Analyzer reads history and derives trends. It keeps no state.
// ⭐ SSOT: 추세 판정은 여기서만
type Analyzer struct {
	history contracts.HistoryStore
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer creates a trend analyzer over the given history store
func NewAnalyzer(history contracts.HistoryStore, log zerolog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		history: history,
		now:     time.Now,
		log:     log.With().Str("component", "trend.analyzer").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ScoreTrend compares the newest score in the trailing 30 days with the oldest one
func (a *Analyzer) ScoreTrend(ctx context.Context, entityID string) (*contracts.TrendResult, error) {
	now := a.now()
	records, err := a.history.QueryScores(ctx, entityID, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}

	result := contracts.StableTrend(entityID, now)
	result.Samples = len(records)
	if len(records) < 2 {
		return result, nil
	}

	previous := records[0]
	current := records[len(records)-1]
	delta := current.OverallScore - previous.OverallScore

	result.CurrentScore = current.OverallScore
	result.PreviousScore = previous.OverallScore
	result.ScoreChange = delta

	if elapsed := current.RecordedAt.Sub(previous.RecordedAt); elapsed > 0 {
		result.Momentum = float64(delta) / (float64(elapsed) / float64(week))
	}

	switch {
	case delta > scoreThreshold:
		result.Direction = contracts.TrendImproving
	case delta < -scoreThreshold:
		result.Direction = contracts.TrendDeclining
	}

	a.log.Debug().
		Str("entity_id", entityID).
		Int("delta", delta).
		Float64("momentum", result.Momentum).
		Str("direction", string(result.Direction)).
		Msg("score trend")

	return result, nil
}

// FlagTrend compares flag severity in the last 30 days with the 30 days before.
// Each window counts a flag kind once, at its latest recorded score.
func (a *Analyzer) FlagTrend(ctx context.Context, entityID string) (*contracts.TrendResult, error) {
	now := a.now()
	records, err := a.history.QueryFlags(ctx, entityID, now.Add(-2*window))
	if err != nil {
		return nil, fmt.Errorf("query flag history: %w", err)
	}

	result := contracts.StableTrend(entityID, now)
	result.Samples = len(records)
	if len(records) == 0 {
		return result, nil
	}

	recentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)

	recent := make(map[contracts.FlagKind]contracts.FlagRecord)
	previous := make(map[contracts.FlagKind]contracts.FlagRecord)
	for _, r := range records {
		switch {
		case r.RecordedAt.After(recentStart) && !r.RecordedAt.After(now):
			keepLatest(recent, r)
		case r.RecordedAt.After(previousStart) && !r.RecordedAt.After(recentStart):
			keepLatest(previous, r)
		}
	}

	for _, r := range recent {
		result.RecentFlagScore += r.Score
	}
	for _, r := range previous {
		result.PreviousFlagScore += r.Score
	}
	result.RecentFlagCount = len(recent)
	result.ResolvedFlagCount = max(len(previous)-len(recent), 0)
	result.Momentum = (result.RecentFlagScore - result.PreviousFlagScore) / windowWeeks

	switch {
	case result.RecentFlagScore < improvingRatio*result.PreviousFlagScore:
		result.Direction = contracts.TrendImproving
	case result.RecentFlagScore > worseningRatio*result.PreviousFlagScore:
		result.Direction = contracts.TrendWorsening
	}

	a.log.Debug().
		Str("entity_id", entityID).
		Float64("recent", result.RecentFlagScore).
		Float64("previous", result.PreviousFlagScore).
		Str("direction", string(result.Direction)).
		Msg("flag trend")

	return result, nil
}

// keepLatest keeps one record per flag kind so repeated detection runs
// inside a window do not add up
func keepLatest(byKind map[contracts.FlagKind]contracts.FlagRecord, r contracts.FlagRecord) {
	if cur, ok := byKind[r.Kind]; ok && !r.RecordedAt.After(cur.RecordedAt) {
		return
	}
	byKind[r.Kind] = r
}
