package redflags

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// Detector runs the registered red-flag heuristics over an entity's history
// ⭐ SSOT: 레드플래그 감지는 여기서만
type Detector struct {
	filings    contracts.FilingSource
	executives contracts.ExecutiveSource
	heuristics []Heuristic
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithClock overrides the wall clock used for recency windows
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// WithHeuristics replaces the default heuristic list
func WithHeuristics(heuristics ...Heuristic) Option {
	return func(d *Detector) {
		d.heuristics = heuristics
	}
}

// NewDetector creates a detector with the five default heuristics
func NewDetector(filings contracts.FilingSource, executives contracts.ExecutiveSource, log zerolog.Logger, opts ...Option) *Detector {
	d := &Detector{
		filings:    filings,
		executives: executives,
		heuristics: DefaultHeuristics(),
		now:        time.Now,
		log:        log.With().Str("component", "redflags.detector").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect loads the entity's filings and executives and evaluates every heuristic
func (d *Detector) Detect(ctx context.Context, entityID string) (contracts.FlagSet, error) {
	filings, err := d.filings.GetFilings(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("get filings: %w", err)
	}
	executives, err := d.executives.GetExecutives(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("get executives: %w", err)
	}

	return d.Evaluate(Input{
		EntityID:   entityID,
		Filings:    filings,
		Executives: executives,
		Now:        d.now(),
	}), nil
}

// Evaluate runs every heuristic over already-loaded records.
// Flags that would break the category bounds are dropped.
func (d *Detector) Evaluate(in Input) contracts.FlagSet {
	flags := make(contracts.FlagSet, 0, len(d.heuristics))
	seen := make(map[contracts.FlagKind]bool, len(d.heuristics))

	for _, h := range d.heuristics {
		flag, ok := h.Evaluate(in)
		if !ok {
			continue
		}
		if seen[flag.Kind] {
			d.log.Warn().Str("entity_id", in.EntityID).Str("kind", string(flag.Kind)).Msg("duplicate flag kind dropped")
			continue
		}
		if flag.Score <= 0 || flag.Score > flag.Kind.MaxScore() {
			d.log.Warn().
				Str("entity_id", in.EntityID).
				Str("kind", string(flag.Kind)).
				Float64("score", flag.Score).
				Msg("out-of-range flag dropped")
			continue
		}
		seen[flag.Kind] = true
		flags = append(flags, flag)
	}

	d.log.Debug().
		Str("entity_id", in.EntityID).
		Int("filings", len(in.Filings)).
		Int("executives", len(in.Executives)).
		Int("flags", len(flags)).
		Float64("total_score", flags.TotalScore()).
		Msg("flags evaluated")

	return flags
}

// Severity buckets the summed score of a flag set
func Severity(flags contracts.FlagSet) contracts.Severity {
	return contracts.SeverityForScore(flags.TotalScore())
}
