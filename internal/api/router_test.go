package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-n-a-v/vettr/backend/internal/api/handlers"
	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/internal/history"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
	"github.com/m-a-n-a-v/vettr/backend/internal/records"
	"github.com/m-a-n-a-v/vettr/backend/internal/redflags"
	"github.com/m-a-n-a-v/vettr/backend/internal/scoring"
	"github.com/m-a-n-a-v/vettr/backend/internal/trend"
	"github.com/m-a-n-a-v/vettr/backend/pkg/config"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) (http.Handler, *records.MemoryStore) {
	t.Helper()
	now := func() time.Time { return testNow }
	store := records.NewMemoryStore()
	hist := history.NewMemoryStore()
	m := metrics.New()
	zl := zerolog.Nop()

	detector := redflags.NewDetector(store, store, zl, redflags.WithClock(now))
	scorer := scoring.NewScorer(detector,
		scoring.Sources{Entities: store, Filings: store, Executives: store},
		scoring.NewMemoryCache(), zl,
		scoring.WithClock(now), scoring.WithHistory(hist), scoring.WithMetrics(m))
	analyzer := trend.NewAnalyzer(hist, zl, trend.WithClock(now))
	eng := engine.New(detector, scorer, analyzer, hist, m, zl)

	log := logger.Nop()
	router := NewRouter(Routes{
		Stocks:  handlers.NewStockHandler(eng, log),
		Scores:  handlers.NewScoreHandler(eng, log),
		Metrics: m.Handler(),
	}, log)
	return router, store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vettr-api")
}

func TestGetScore(t *testing.T) {
	router, store := newTestRouter(t)
	store.PutEntity(contracts.Entity{ID: "ACME", MarketCap: 5e8})

	rec, env := do(t, router, http.MethodGet, "/api/stocks/ACME/score", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var score contracts.CompositeScore
	require.NoError(t, json.Unmarshal(env.Data, &score))
	assert.Equal(t, "ACME", score.EntityID)
	assert.GreaterOrEqual(t, score.OverallScore, 0)
	assert.LessOrEqual(t, score.OverallScore, 100)
	assert.Len(t, score.Components, 5)
}

func TestGetScore_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, env := do(t, router, http.MethodGet, "/api/stocks/NOPE/score", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "stock not found", env.Error)
}

func TestGetFlags(t *testing.T) {
	router, store := newTestRouter(t)
	store.AddFilings("ACME",
		contracts.FilingRecord{Type: "Share Consolidation", FiledAt: testNow.AddDate(0, 0, -10)},
		contracts.FilingRecord{Type: "Share Consolidation", FiledAt: testNow.AddDate(0, 0, -40)},
	)

	rec, env := do(t, router, http.MethodGet, "/api/stocks/ACME/flags", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report engine.FlagReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "ACME", report.EntityID)
	assert.NotEmpty(t, report.Flags)
	assert.NotEmpty(t, report.Severity)
}

func TestGetTrends_NoHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/stocks/ACME/trend/score", "/api/stocks/ACME/trend/flags"} {
		rec, env := do(t, router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		var result contracts.TrendResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, contracts.TrendStable, result.Direction, path)
	}
}

func TestInvalidateCache(t *testing.T) {
	router, store := newTestRouter(t)
	store.PutEntity(contracts.Entity{ID: "ACME"})
	do(t, router, http.MethodGet, "/api/stocks/ACME/score", "")

	rec, _ := do(t, router, http.MethodDelete, "/api/scores/cache/ACME", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router, http.MethodDelete, "/api/scores/cache", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncScores(t *testing.T) {
	remoteAt := testNow.Add(time.Hour).Format(time.RFC3339)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantResolv int
		wantFail   int
	}{
		{
			name:       "remote only resolves",
			body:       `{"strategy":"LAST_WRITE_WINS","remotes":[{"entity_id":"ACME","score":{"overall_score":70,"computed_at":"` + remoteAt + `"}}]}`,
			wantStatus: http.StatusOK,
			wantResolv: 1,
		},
		{
			name:       "partial failure is reported",
			body:       `{"strategy":"SERVER_WINS","remotes":[{"entity_id":"ACME","score":{"overall_score":70,"computed_at":"` + remoteAt + `"}},{"entity_id":"GHOST"}]}`,
			wantStatus: http.StatusOK,
			wantResolv: 1,
			wantFail:   1,
		},
		{
			name:       "every candidate invalid",
			body:       `{"strategy":"LOCAL_WINS","remotes":[{"entity_id":"GHOST"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown strategy",
			body:       `{"strategy":"COIN_FLIP","remotes":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)
			rec, env := do(t, router, http.MethodPost, "/api/sync/scores", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, env.Error)
				return
			}

			var resp handlers.SyncResponse
			require.NoError(t, json.Unmarshal(env.Data, &resp))
			assert.Len(t, resp.Resolved, tt.wantResolv)
			assert.Len(t, resp.Failures, tt.wantFail)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	store.PutEntity(contracts.Entity{ID: "ACME"})
	do(t, router, http.MethodGet, "/api/stocks/ACME/score", "")

	rec, _ := do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vettr_score_cache_misses_total")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := New(&config.Config{Port: "0", Env: "development"}, logger.Nop(), router)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
