package commands

import (
	"fmt"

	"github.com/m-a-n-a-v/vettr/backend/internal/api/stream"
	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/engine"
	"github.com/m-a-n-a-v/vettr/backend/internal/external/filings"
	"github.com/m-a-n-a-v/vettr/backend/internal/history"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
	"github.com/m-a-n-a-v/vettr/backend/internal/records"
	"github.com/m-a-n-a-v/vettr/backend/internal/redflags"
	"github.com/m-a-n-a-v/vettr/backend/internal/scoring"
	"github.com/m-a-n-a-v/vettr/backend/internal/trend"
	"github.com/m-a-n-a-v/vettr/backend/internal/watchlist"
	"github.com/m-a-n-a-v/vettr/backend/pkg/config"
	"github.com/m-a-n-a-v/vettr/backend/pkg/database"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
	"github.com/m-a-n-a-v/vettr/backend/pkg/redis"
)

// app is the wired dependency graph shared by every command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	hub     *stream.Hub
	engine  *engine.Engine
	filings filings.Sink
	db      *database.DB

	closers []func()
}

// newApp wires stores, cache and analytics from the configuration.
// Without DATABASE_URL it falls back to in-memory stores seeded from the watchlist.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)
	zl := log.Zerolog()
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	a.hub = stream.NewHub(a.metrics, zl)
	a.closers = append(a.closers, a.hub.Close)

	var (
		sources scoring.Sources
		hist    contracts.HistoryStore
	)

	if cfg.HasDatabase() {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)

		sources = scoring.Sources{
			Entities:   records.NewEntityRepository(db.Pool),
			Filings:    records.NewFilingRepository(db.Pool),
			Executives: records.NewExecutiveRepository(db.Pool),
		}
		a.filings = records.NewFilingRepository(db.Pool)
		hist = history.NewRepository(db.Pool)
		log.Info("Using PostgreSQL stores")
	} else {
		store := records.NewMemoryStore()
		if wl, err := watchlist.Load(cfg.Scheduler.WatchlistPath); err != nil {
			log.WithError(err).Warn("Watchlist not loaded, memory store is empty")
		} else {
			for _, e := range wl.ToEntities() {
				store.PutEntity(e)
			}
		}
		sources = scoring.Sources{Entities: store, Filings: store, Executives: store}
		a.filings = store
		hist = history.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	cache, err := a.scoreCache()
	if err != nil {
		a.Close()
		return nil, err
	}

	detector := redflags.NewDetector(sources.Filings, sources.Executives, zl)
	scorer := scoring.NewScorer(detector, sources, cache, zl,
		scoring.WithTTL(cfg.Scoring.CacheTTL),
		scoring.WithLockMode(scoring.LockMode(cfg.Scoring.LockMode)),
		scoring.WithHistory(hist),
		scoring.WithPublisher(a.hub),
		scoring.WithMetrics(a.metrics),
	)
	analyzer := trend.NewAnalyzer(hist, zl)
	a.engine = engine.New(detector, scorer, analyzer, hist, a.metrics, zl)

	return a, nil
}

func (a *app) scoreCache() (contracts.ScoreCache, error) {
	if a.cfg.Scoring.CacheBackend != config.CacheBackendRedis {
		return scoring.NewMemoryCache(), nil
	}

	client, err := redis.New(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.log.Info("Using Redis score cache")

	return scoring.NewRedisCache(redis.NewCache(client, a.cfg.Redis.Prefix), a.cfg.Scoring.CacheTTL, a.log.Zerolog()), nil
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
