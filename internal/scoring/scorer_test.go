package scoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/history"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
	"github.com/m-a-n-a-v/vettr/backend/internal/reconcile"
	"github.com/m-a-n-a-v/vettr/backend/internal/records"
	"github.com/m-a-n-a-v/vettr/backend/internal/redflags"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore counts entity lookups on top of a memory store
type countingStore struct {
	*records.MemoryStore
	entityCalls atomic.Int32
	delay       time.Duration
	onEntity    func()
}

func (s *countingStore) GetEntity(ctx context.Context, entityID string) (*contracts.Entity, error) {
	s.entityCalls.Add(1)
	if s.onEntity != nil {
		s.onEntity()
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.MemoryStore.GetEntity(ctx, entityID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	scores []*contracts.CompositeScore
}

func (p *recordingPublisher) PublishScore(score *contracts.CompositeScore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores = append(p.scores, score)
}

func seedACME(store *records.MemoryStore) {
	store.PutEntity(contracts.Entity{ID: "ACME", Name: "Acme Mining", MarketCap: 3e9, PriceChangePercent: 12})
	store.SetExecutives("ACME",
		contracts.ExecutiveRecord{Name: "A", TenureYears: 6, Specialization: "Geology"},
		contracts.ExecutiveRecord{Name: "B", TenureYears: 6, Specialization: "Finance"},
		contracts.ExecutiveRecord{Name: "C", TenureYears: 4, Specialization: "geology"},
		contracts.ExecutiveRecord{Name: "D", TenureYears: 4, Specialization: "Legal"},
	)
	store.AddFilings("ACME",
		contracts.FilingRecord{Type: "Audit Report", FiledAt: testNow.AddDate(0, 0, -20), Material: true},
		contracts.FilingRecord{Type: "News", FiledAt: testNow.AddDate(0, 0, -100), Material: true},
		contracts.FilingRecord{Type: "Financial Statements", FiledAt: testNow.AddDate(0, 0, -190), Material: true},
		contracts.FilingRecord{Type: "MD&A", FiledAt: testNow.AddDate(0, 0, -280)},
	)
}

type fixture struct {
	store     *countingStore
	cache     *MemoryCache
	history   *history.MemoryStore
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	clock     *fakeClock
	scorer    *Scorer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:     &countingStore{MemoryStore: records.NewMemoryStore()},
		cache:     NewMemoryCache(),
		history:   history.NewMemoryStore(),
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
		clock:     &fakeClock{now: testNow},
	}
	seedACME(f.store.MemoryStore)

	detector := redflags.NewDetector(f.store, f.store, zerolog.Nop())
	base := []Option{
		WithClock(f.clock.Now),
		WithHistory(f.history),
		WithPublisher(f.publisher),
		WithMetrics(f.metrics),
	}
	f.scorer = NewScorer(detector,
		Sources{Entities: f.store, Filings: f.store, Executives: f.store},
		f.cache, zerolog.Nop(), append(base, opts...)...)
	return f
}

func TestScore_Components(t *testing.T) {
	f := newFixture(t)

	score, err := f.scorer.Score(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		contracts.ComponentPedigree:       100,
		contracts.ComponentFilingVelocity: 100,
		contracts.ComponentRedFlag:        100,
		contracts.ComponentGrowth:         75,
		contracts.ComponentGovernance:     60,
	}, score.Components)
	// 90.25 base + 5 audit bonus
	assert.Equal(t, 95, score.OverallScore)
	assert.Equal(t, testNow, score.ComputedAt)
}

func TestScore_SilentEntityPenalized(t *testing.T) {
	f := newFixture(t)
	f.store.PutEntity(contracts.Entity{ID: "QUIET", MarketCap: 1e6, PriceChangePercent: -50})

	score, err := f.scorer.Score(context.Background(), "QUIET")
	require.NoError(t, err)

	assert.Equal(t, 10, score.Components[contracts.ComponentPedigree])
	assert.Equal(t, 20, score.Components[contracts.ComponentFilingVelocity])
	assert.Equal(t, 100, score.Components[contracts.ComponentRedFlag])
	assert.Equal(t, 15, score.Components[contracts.ComponentGrowth])
	assert.Equal(t, 20, score.Components[contracts.ComponentGovernance])
	// 36.75 base - 10 silence penalty
	assert.Equal(t, 26, score.OverallScore)
}

func TestScore_CacheHitSkipsSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	f.clock.Advance(23*time.Hour + 59*time.Minute)
	second, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.store.entityCalls.Load())
}

func TestScore_RecomputesAfterTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	second, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	assert.True(t, second.ComputedAt.After(first.ComputedAt))
	assert.Equal(t, int32(2), f.store.entityCalls.Load())

	records, err := f.history.QueryScores(ctx, "ACME", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestScore_CustomTTL(t *testing.T) {
	f := newFixture(t, WithTTL(time.Hour))
	ctx := context.Background()

	_, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, f.scorer.TTL())
	assert.Equal(t, int32(2), f.store.entityCalls.Load())
}

func TestScore_NotFoundIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scorer.Score(ctx, "GHOST")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	_, err = f.scorer.Score(ctx, "GHOST")
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	assert.Zero(t, f.cache.Len())
	assert.Equal(t, int32(2), f.store.entityCalls.Load())
	assert.Empty(t, f.publisher.scores)
}

func TestScore_EmptyID(t *testing.T) {
	f := newFixture(t)
	_, err := f.scorer.Score(context.Background(), "")
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestScore_ConcurrentSameEntityComputesOnce(t *testing.T) {
	for _, mode := range []LockMode{LockPerEntity, LockGlobal} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, WithLockMode(mode))
			f.store.delay = 20 * time.Millisecond

			var wg sync.WaitGroup
			results := make([]*contracts.CompositeScore, 16)
			errs := make([]error, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = f.scorer.Score(context.Background(), "ACME")
				}(i)
			}
			wg.Wait()

			for i := range results {
				require.NoError(t, errs[i])
				assert.Equal(t, 95, results[i].OverallScore)
			}
			assert.Equal(t, int32(1), f.store.entityCalls.Load())
			assert.Len(t, f.publisher.scores, 1)
		})
	}
}

func TestScore_SharedResultIsNotAliased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	score, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	score.Components[contracts.ComponentGrowth] = -1

	again, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, 75, again.Components[contracts.ComponentGrowth])
}

func TestScore_BoundsAcrossInputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	caps := []float64{0, 3e7, 2e8, 6e8, 5e9, 5e10}
	moves := []float64{-90, -20, -5, 5, 20, 40, 300}
	for i, mc := range caps {
		for j, mv := range moves {
			id := string(rune('a'+i)) + string(rune('a'+j))
			f.store.PutEntity(contracts.Entity{ID: id, MarketCap: mc, PriceChangePercent: mv})
			score, err := f.scorer.Score(ctx, id)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score.OverallScore, 0)
			assert.LessOrEqual(t, score.OverallScore, 100)
			assert.Len(t, score.Components, 5)
			for key, v := range score.Components {
				assert.GreaterOrEqual(t, v, 0, key)
				assert.LessOrEqual(t, v, 100, key)
			}
		}
	}
}

func TestScore_RecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddFilings("ACME", contracts.FilingRecord{Type: "Private Placement", FiledAt: testNow.AddDate(0, 0, -5)})

	_, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	scores, err := f.history.QueryScores(ctx, "ACME", time.Time{})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, testNow, scores[0].RecordedAt)

	flags, err := f.history.QueryFlags(ctx, "ACME", time.Time{})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, contracts.FlagFinancingVelocity, flags[0].Kind)
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	require.NoError(t, f.scorer.Invalidate(ctx, "ACME"))
	_, err = f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.entityCalls.Load())

	require.NoError(t, f.scorer.InvalidateAll(ctx))
	assert.Zero(t, f.cache.Len())
}

func TestInvalidate_DuringComputationIsNotOverwritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var once sync.Once
	f.store.onEntity = func() {
		once.Do(func() {
			require.NoError(t, f.scorer.Invalidate(ctx, "ACME"))
		})
	}

	score, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, 95, score.OverallScore)
	assert.Zero(t, f.cache.Len())

	_, err = f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.entityCalls.Load())
	assert.Equal(t, 1, f.cache.Len())
}

func TestInvalidateAll_DuringComputationIsNotOverwritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var once sync.Once
	f.store.onEntity = func() {
		once.Do(func() {
			require.NoError(t, f.scorer.InvalidateAll(ctx))
		})
	}

	_, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	assert.Zero(t, f.cache.Len())
}

type failingHistory struct{ *history.MemoryStore }

func (*failingHistory) AppendScore(ctx context.Context, record contracts.ScoreRecord) error {
	return errors.New("history unavailable")
}

func TestScore_HistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, WithHistory(&failingHistory{history.NewMemoryStore()}))

	score, err := f.scorer.Score(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 95, score.OverallScore)
	assert.Equal(t, 1, f.cache.Len())
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	local, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	newer := &contracts.CompositeScore{OverallScore: 50, Components: map[string]int{}, ComputedAt: testNow.Add(time.Hour)}
	remoteOnly := &contracts.CompositeScore{OverallScore: 42, Components: map[string]int{}, ComputedAt: testNow}

	batch, err := f.scorer.Reconcile(ctx, []RemoteScore{
		{EntityID: "ACME", Score: newer},
		{EntityID: "NOWHERE"},
		{EntityID: "FRESH", Score: remoteOnly},
	}, reconcile.LastWriteWins)

	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
	require.Len(t, batch.Resolved, 2)
	assert.Equal(t, 50, batch.Resolved[0].OverallScore)
	assert.Equal(t, "FRESH", batch.Resolved[1].EntityID)
	require.Len(t, batch.Unresolved, 1)
	assert.Equal(t, "NOWHERE", batch.Unresolved[0].Key)

	cached, ok, err := f.cache.Get(ctx, "ACME")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, cached.OverallScore)
	assert.NotEqual(t, local.OverallScore, cached.OverallScore)
}

func TestReconcile_ServerWinsKeepsLocalWhenRemoteMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)

	batch, err := f.scorer.Reconcile(ctx, []RemoteScore{{EntityID: "ACME"}}, reconcile.ServerWins)
	require.NoError(t, err)
	require.Len(t, batch.Resolved, 1)
	assert.Equal(t, 95, batch.Resolved[0].OverallScore)
}

func TestSweepStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutEntity(contracts.Entity{ID: "BLUE"})

	_, err := f.scorer.Score(ctx, "ACME")
	require.NoError(t, err)
	f.clock.Advance(12 * time.Hour)
	_, err = f.scorer.Score(ctx, "BLUE")
	require.NoError(t, err)

	assert.Zero(t, f.scorer.SweepStale())

	f.clock.Advance(12 * time.Hour)
	assert.Equal(t, 1, f.scorer.SweepStale())
	assert.Equal(t, 1, f.cache.Len())
}
