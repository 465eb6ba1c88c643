// Package jobs holds the scheduled analytics jobs.
package jobs

import (
	"context"
	"sync"

	"github.com/m-a-n-a-v/vettr/backend/internal/watchlist"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// Targets returns the entity ids a job should process
type Targets func(ctx context.Context) ([]string, error)

// StaticTargets always returns the same ids
func StaticTargets(ids ...string) Targets {
	return func(ctx context.Context) ([]string, error) {
		return ids, nil
	}
}

// WatchlistTargets reloads the watchlist file on every run so edits apply
// without a restart. Changes are logged by content hash.
func WatchlistTargets(path string, log *logger.Logger) Targets {
	var (
		mu       sync.Mutex
		lastHash string
	)

	return func(ctx context.Context) ([]string, error) {
		wl, err := watchlist.Load(path)
		if err != nil {
			return nil, err
		}

		if hash, err := watchlist.Hash(wl); err == nil {
			mu.Lock()
			if hash != lastHash {
				log.WithFields(map[string]interface{}{
					"path":     path,
					"entities": len(wl.Entities),
					"hash":     hash[:12],
				}).Info("Watchlist loaded")
				lastHash = hash
			}
			mu.Unlock()
		}

		return wl.IDs(), nil
	}
}
