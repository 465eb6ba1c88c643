package records

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/pkg/database"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, database.Schema())
	require.NoError(t, err)
	return pool
}

func TestRepositories_RoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	entityID := "TEST-" + uuid.NewString()[:8]
	day := time.Now().UTC().Truncate(24 * time.Hour)

	entities := NewEntityRepository(pool)
	_, err := entities.GetEntity(ctx, entityID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	require.NoError(t, entities.Save(ctx, contracts.Entity{ID: entityID, Name: "Test", MarketCap: 5e8, PriceChangePercent: -3}))
	e, err := entities.GetEntity(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, 5e8, e.MarketCap)

	filings := NewFilingRepository(pool)
	require.NoError(t, filings.SaveBatch(ctx, []contracts.FilingRecord{
		{EntityID: entityID, Type: "News", FiledAt: day.AddDate(0, 0, -30), Summary: "draft"},
		{EntityID: entityID, Type: "MD&A", FiledAt: day},
	}))
	require.NoError(t, filings.SaveBatch(ctx, []contracts.FilingRecord{
		{EntityID: entityID, Type: "News", FiledAt: day.AddDate(0, 0, -30), Summary: "final", Material: true},
	}))

	got, err := filings.GetFilings(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MD&A", got[0].Type, "newest first")
	assert.Equal(t, "final", got[1].Summary)
	assert.True(t, got[1].Material)

	execs := NewExecutiveRepository(pool)
	require.NoError(t, execs.ReplaceRoster(ctx, entityID, []contracts.ExecutiveRecord{{Name: "A", TenureYears: 1}, {Name: "B", TenureYears: 7}}))
	require.NoError(t, execs.ReplaceRoster(ctx, entityID, []contracts.ExecutiveRecord{{Name: "C", TenureYears: 3}}))

	roster, err := execs.GetExecutives(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "C", roster[0].Name)
}
