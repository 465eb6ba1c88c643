package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// MemoryCache is an in-process contracts.ScoreCache.
// Values are cloned on the way in and out so callers never share the stored map.
type MemoryCache struct {
	mu     sync.RWMutex
	scores map[string]*contracts.CompositeScore
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		scores: make(map[string]*contracts.CompositeScore),
	}
}

// Get returns the stored score; freshness is the caller's decision
func (c *MemoryCache) Get(ctx context.Context, entityID string) (*contracts.CompositeScore, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	score, ok := c.scores[entityID]
	if !ok {
		return nil, false, nil
	}
	return score.Clone(), true, nil
}

// Set stores the score under its entity id
func (c *MemoryCache) Set(ctx context.Context, entityID string, score *contracts.CompositeScore) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scores[entityID] = score.Clone()
	return nil
}

// Invalidate drops one entity's score
func (c *MemoryCache) Invalidate(ctx context.Context, entityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.scores, entityID)
	return nil
}

// InvalidateAll drops every score
func (c *MemoryCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scores = make(map[string]*contracts.CompositeScore)
	return nil
}

// Len returns the number of cached entities
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}

// Sweep removes scores older than ttl and returns how many were dropped.
// Stale scores are never served; sweeping only bounds memory.
func (c *MemoryCache) Sweep(now time.Time, ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for id, score := range c.scores {
		if score.Age(now) >= ttl {
			delete(c.scores, id)
			count++
		}
	}
	return count
}
