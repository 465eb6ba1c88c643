package trend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/history"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newAnalyzer(store contracts.HistoryStore) *Analyzer {
	return NewAnalyzer(store, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
}

func addScore(t *testing.T, store *history.MemoryStore, overall int, ago time.Duration) {
	t.Helper()
	require.NoError(t, store.AppendScore(context.Background(), contracts.ScoreRecord{
		ID:           uuid.New(),
		EntityID:     "ACME",
		OverallScore: overall,
		RecordedAt:   testNow.Add(-ago),
	}))
}

func addFlag(t *testing.T, store *history.MemoryStore, score float64, ago time.Duration) {
	t.Helper()
	addKindFlag(t, store, contracts.FlagFinancingVelocity, score, ago)
}

func addKindFlag(t *testing.T, store *history.MemoryStore, kind contracts.FlagKind, score float64, ago time.Duration) {
	t.Helper()
	require.NoError(t, store.AppendFlags(context.Background(), []contracts.FlagRecord{{
		ID:         uuid.New(),
		EntityID:   "ACME",
		Kind:       kind,
		Score:      score,
		RecordedAt: testNow.Add(-ago),
	}}))
}

const day = 24 * time.Hour

func TestScoreTrend(t *testing.T) {
	tests := []struct {
		name      string
		scores    map[time.Duration]int
		direction contracts.TrendDirection
		change    int
		momentum  float64
	}{
		{"improving", map[time.Duration]int{20 * day: 50, 0: 62}, contracts.TrendImproving, 12, 12.0 / (20.0 / 7.0)},
		{"declining", map[time.Duration]int{14 * day: 70, 7 * day: 66, 0: 58}, contracts.TrendDeclining, -12, -6},
		{"small move is stable", map[time.Duration]int{10 * day: 60, 0: 65}, contracts.TrendStable, 5, 3.5},
		{"old records outside window", map[time.Duration]int{45 * day: 10, 5 * day: 70}, contracts.TrendStable, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := history.NewMemoryStore()
			for ago, score := range tt.scores {
				addScore(t, store, score, ago)
			}

			result, err := newAnalyzer(store).ScoreTrend(context.Background(), "ACME")
			require.NoError(t, err)
			assert.Equal(t, tt.direction, result.Direction)
			assert.Equal(t, tt.change, result.ScoreChange)
			assert.InDelta(t, tt.momentum, result.Momentum, 1e-9)
		})
	}
}

func TestScoreTrend_NoHistory(t *testing.T) {
	result, err := newAnalyzer(history.NewMemoryStore()).ScoreTrend(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, contracts.TrendStable, result.Direction)
	assert.Zero(t, result.Momentum)
	assert.Zero(t, result.Samples)
	assert.Equal(t, testNow, result.AnalyzedAt)
}

func TestScoreTrend_SameTimestampHasZeroMomentum(t *testing.T) {
	store := history.NewMemoryStore()
	addScore(t, store, 40, day)
	addScore(t, store, 60, day)

	result, err := newAnalyzer(store).ScoreTrend(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, contracts.TrendImproving, result.Direction)
	assert.Zero(t, result.Momentum)
}

func TestFlagTrend(t *testing.T) {
	t.Run("improving", func(t *testing.T) {
		store := history.NewMemoryStore()
		addFlag(t, store, 18.75, 45*day)
		addKindFlag(t, store, contracts.FlagDebtTrend, 11.25, 40*day)
		addFlag(t, store, 15, 10*day)

		result, err := newAnalyzer(store).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, contracts.TrendImproving, result.Direction)
		assert.Equal(t, 1, result.RecentFlagCount)
		assert.Equal(t, 1, result.ResolvedFlagCount)
		assert.Equal(t, 15.0, result.RecentFlagScore)
		assert.Equal(t, 30.0, result.PreviousFlagScore)
		assert.InDelta(t, -15.0/windowWeeks, result.Momentum, 1e-9)
	})

	t.Run("worsening from nothing", func(t *testing.T) {
		store := history.NewMemoryStore()
		addFlag(t, store, 6.25, 3*day)

		result, err := newAnalyzer(store).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, contracts.TrendWorsening, result.Direction)
		assert.Zero(t, result.ResolvedFlagCount)
	})

	t.Run("within ten percent is stable", func(t *testing.T) {
		store := history.NewMemoryStore()
		addFlag(t, store, 20, 50*day)
		addFlag(t, store, 21, 5*day)

		result, err := newAnalyzer(store).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, contracts.TrendStable, result.Direction)
	})

	t.Run("window boundaries", func(t *testing.T) {
		store := history.NewMemoryStore()
		addFlag(t, store, 10, 30*day) // belongs to previous window
		addFlag(t, store, 10, 60*day) // excluded

		result, err := newAnalyzer(store).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, 10.0, result.PreviousFlagScore)
		assert.Zero(t, result.RecentFlagScore)
		assert.Equal(t, contracts.TrendImproving, result.Direction)
	})

	t.Run("repeated runs count once per kind", func(t *testing.T) {
		store := history.NewMemoryStore()
		addKindFlag(t, store, contracts.FlagExecutiveChurn, 20, 40*day)
		addKindFlag(t, store, contracts.FlagDebtTrend, 10, 40*day)
		for _, ago := range []time.Duration{3 * day, 2 * day, 1 * day} {
			addKindFlag(t, store, contracts.FlagExecutiveChurn, 20, ago)
			addKindFlag(t, store, contracts.FlagDebtTrend, 10, ago)
		}

		result, err := newAnalyzer(store).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, contracts.TrendStable, result.Direction)
		assert.Equal(t, 2, result.RecentFlagCount)
		assert.Zero(t, result.ResolvedFlagCount)
		assert.Equal(t, 30.0, result.RecentFlagScore)
		assert.Equal(t, 30.0, result.PreviousFlagScore)
		assert.Equal(t, 8, result.Samples)
	})

	t.Run("latest score of a kind wins", func(t *testing.T) {
		store := history.NewMemoryStore()
		addFlag(t, store, 20, 40*day)
		addFlag(t, store, 25, 5*day)
		addFlag(t, store, 10, 1*day)

		result, err := newAnalyzer(store).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, 10.0, result.RecentFlagScore)
		assert.Equal(t, contracts.TrendImproving, result.Direction)
	})

	t.Run("no history", func(t *testing.T) {
		result, err := newAnalyzer(history.NewMemoryStore()).FlagTrend(context.Background(), "ACME")
		require.NoError(t, err)
		assert.Equal(t, contracts.TrendStable, result.Direction)
		assert.Zero(t, result.RecentFlagCount)
	})
}

type brokenStore struct{ *history.MemoryStore }

func (brokenStore) QueryScores(ctx context.Context, entityID string, since time.Time) ([]contracts.ScoreRecord, error) {
	return nil, errors.New("connection reset")
}

func TestScoreTrend_StoreErrorPropagates(t *testing.T) {
	_, err := newAnalyzer(brokenStore{history.NewMemoryStore()}).ScoreTrend(context.Background(), "ACME")
	assert.ErrorContains(t, err, "connection reset")
}
