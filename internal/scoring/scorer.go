// Package scoring computes the bounded composite investment score of an entity.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
	"github.com/m-a-n-a-v/vettr/backend/internal/redflags"
)

// DefaultTTL is how long a computed score is served from cache
const DefaultTTL = 24 * time.Hour

// LockMode selects how concurrent computations are serialized
type LockMode string

const (
	// LockPerEntity joins concurrent callers for the same entity; other entities run in parallel
	LockPerEntity LockMode = "entity"
	// LockGlobal runs one computation at a time across all entities
	LockGlobal LockMode = "global"
)

// Publisher receives every freshly computed score (live subscribers)
type Publisher interface {
	PublishScore(score *contracts.CompositeScore)
}

// Sources bundles the record collaborators of a scorer
type Sources struct {
	Entities   contracts.EntitySource
	Filings    contracts.FilingSource
	Executives contracts.ExecutiveSource
}

// Scorer computes, caches and records composite scores
// ⭐ SSOT: 종합 점수 계산과 캐시 소유는 여기서만
type Scorer struct {
	detector *redflags.Detector
	sources  Sources
	cache    contracts.ScoreCache

	history   contracts.HistoryStore
	publisher Publisher
	metrics   *metrics.Metrics

	ttl      time.Duration
	lockMode LockMode
	now      func() time.Time

	group  singleflight.Group
	global sync.Mutex

	// 무효화 세대: 계산 중 무효화되면 결과를 캐시에 쓰지 않음
	genMu     sync.Mutex
	genAll    uint64
	genEntity map[string]uint64

	log zerolog.Logger
}

// Option configures a Scorer
type Option func(*Scorer)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// WithTTL overrides the cache freshness window
func WithTTL(ttl time.Duration) Option {
	return func(s *Scorer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLockMode selects per-entity or global serialization
func WithLockMode(mode LockMode) Option {
	return func(s *Scorer) {
		s.lockMode = mode
	}
}

// WithHistory appends every computation to the history store
func WithHistory(history contracts.HistoryStore) Option {
	return func(s *Scorer) {
		s.history = history
	}
}

// WithPublisher forwards every computation to live subscribers
func WithPublisher(p Publisher) Option {
	return func(s *Scorer) {
		s.publisher = p
	}
}

// WithMetrics records cache and computation metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// NewScorer creates a scorer. The cache is owned by the scorer from here on.
func NewScorer(detector *redflags.Detector, sources Sources, cache contracts.ScoreCache, log zerolog.Logger, opts ...Option) *Scorer {
	s := &Scorer{
		detector:  detector,
		sources:   sources,
		cache:     cache,
		ttl:       DefaultTTL,
		lockMode:  LockPerEntity,
		now:       time.Now,
		genEntity: make(map[string]uint64),
		log:       log.With().Str("component", "scoring.scorer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured freshness window
func (s *Scorer) TTL() time.Duration {
	return s.ttl
}

// Score returns the entity's composite score, from cache when fresh.
// Unknown entities fail with contracts.ErrNotFound and nothing is cached.
func (s *Scorer) Score(ctx context.Context, entityID string) (*contracts.CompositeScore, error) {
	if entityID == "" {
		return nil, fmt.Errorf("empty entity id: %w", contracts.ErrInvalidArgument)
	}

	if cached, ok := s.fresh(ctx, entityID); ok {
		s.metrics.CacheHit()
		return cached, nil
	}

	if s.lockMode == LockGlobal {
		s.global.Lock()
		defer s.global.Unlock()
		return s.computeIfStale(ctx, entityID)
	}

	v, err, _ := s.group.Do(entityID, func() (interface{}, error) {
		return s.computeIfStale(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}
	// 공유 결과는 호출자마다 복사
	return v.(*contracts.CompositeScore).Clone(), nil
}

// computeIfStale re-checks the cache under the lock; a caller that waited
// behind another computation gets its result without touching the sources.
func (s *Scorer) computeIfStale(ctx context.Context, entityID string) (*contracts.CompositeScore, error) {
	if cached, ok := s.fresh(ctx, entityID); ok {
		s.metrics.CacheHit()
		return cached, nil
	}
	s.metrics.CacheMiss()
	return s.compute(ctx, entityID)
}

// fresh returns a cached score younger than the TTL.
// Cache read failures are treated as misses.
func (s *Scorer) fresh(ctx context.Context, entityID string) (*contracts.CompositeScore, bool) {
	cached, ok, err := s.cache.Get(ctx, entityID)
	if err != nil {
		s.log.Warn().Err(err).Str("entity_id", entityID).Msg("score cache read failed")
		return nil, false
	}
	if !ok || cached == nil {
		return nil, false
	}
	if cached.Age(s.now()) >= s.ttl {
		return nil, false
	}
	return cached, true
}

func (s *Scorer) compute(ctx context.Context, entityID string) (*contracts.CompositeScore, error) {
	start := time.Now()
	gen := s.generation(entityID)

	entity, err := s.sources.Entities.GetEntity(ctx, entityID)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, contracts.ErrNotFound) {
			result = metrics.ResultNotFound
		}
		s.metrics.ObserveComputation(result, time.Since(start))
		return nil, fmt.Errorf("get entity: %w", err)
	}

	filings, err := s.sources.Filings.GetFilings(ctx, entityID)
	if err != nil {
		s.metrics.ObserveComputation(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("get filings: %w", err)
	}
	executives, err := s.sources.Executives.GetExecutives(ctx, entityID)
	if err != nil {
		s.metrics.ObserveComputation(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("get executives: %w", err)
	}

	now := s.now()
	flags := s.detector.Evaluate(redflags.Input{
		EntityID:   entityID,
		Filings:    filings,
		Executives: executives,
		Now:        now,
	})

	overall, components := compose(scoreInput{
		entity:     entity,
		filings:    filings,
		executives: executives,
		flags:      flags,
		now:        now,
	})

	score := &contracts.CompositeScore{
		EntityID:     entityID,
		OverallScore: overall,
		Components:   components,
		ComputedAt:   now,
	}

	if s.generation(entityID) != gen {
		s.log.Debug().Str("entity_id", entityID).Msg("invalidated during computation, not cached")
	} else if err := s.cache.Set(ctx, entityID, score); err != nil {
		s.log.Warn().Err(err).Str("entity_id", entityID).Msg("score cache write failed")
	}

	s.record(ctx, score, flags)

	for _, f := range flags {
		s.metrics.FlagDetected(string(f.Kind))
	}
	s.metrics.ObserveComputation(metrics.ResultOK, time.Since(start))

	if s.publisher != nil {
		s.publisher.PublishScore(score.Clone())
	}

	s.log.Debug().
		Str("entity_id", entityID).
		Int("overall", overall).
		Interface("components", components).
		Int("flags", len(flags)).
		Dur("elapsed", time.Since(start)).
		Msg("score computed")

	return score, nil
}

// record appends the run to history; failures never fail the computation
func (s *Scorer) record(ctx context.Context, score *contracts.CompositeScore, flags contracts.FlagSet) {
	if s.history == nil {
		return
	}
	if err := s.history.AppendScore(ctx, contracts.NewScoreRecord(score)); err != nil {
		s.log.Error().Err(err).Str("entity_id", score.EntityID).Msg("append score history failed")
	}
	if err := s.history.AppendFlags(ctx, contracts.NewFlagRecords(flags)); err != nil {
		s.log.Error().Err(err).Str("entity_id", score.EntityID).Msg("append flag history failed")
	}
}

// generation changes whenever the entity or the whole cache is invalidated
func (s *Scorer) generation(entityID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.genAll + s.genEntity[entityID]
}

// Invalidate drops one entity's cached score. A computation already running
// for the entity still returns its result but does not cache it.
func (s *Scorer) Invalidate(ctx context.Context, entityID string) error {
	s.genMu.Lock()
	s.genEntity[entityID]++
	s.genMu.Unlock()

	s.group.Forget(entityID)
	if err := s.cache.Invalidate(ctx, entityID); err != nil {
		return fmt.Errorf("invalidate %s: %w", entityID, err)
	}
	s.metrics.Invalidated("entity")
	return nil
}

// InvalidateAll drops every cached score
func (s *Scorer) InvalidateAll(ctx context.Context) error {
	s.genMu.Lock()
	s.genAll++
	s.genMu.Unlock()

	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("invalidate all: %w", err)
	}
	s.metrics.Invalidated("all")
	s.log.Info().Msg("score cache invalidated")
	return nil
}

// sweeper is implemented by caches that hold expired entries in process
type sweeper interface {
	Sweep(now time.Time, ttl time.Duration) int
}

// SweepStale evicts expired scores from an in-process cache.
// Caches with their own expiry (Redis) report zero.
func (s *Scorer) SweepStale() int {
	sw, ok := s.cache.(sweeper)
	if !ok {
		return 0
	}
	n := sw.Sweep(s.now(), s.ttl)
	if n > 0 {
		s.log.Info().Int("count", n).Msg("stale scores swept")
	}
	return n
}
