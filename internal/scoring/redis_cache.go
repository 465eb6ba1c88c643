package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/pkg/redis"
)

// RedisCache is a contracts.ScoreCache shared between processes.
// Redis expiry is set to the scorer TTL so stale keys disappear on their own.
type RedisCache struct {
	cache *redis.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewRedisCache creates a Redis-backed score cache
func NewRedisCache(cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "scoring.redis_cache").Logger(),
	}
}

// Get implements contracts.ScoreCache
func (c *RedisCache) Get(ctx context.Context, entityID string) (*contracts.CompositeScore, bool, error) {
	var score contracts.CompositeScore
	found, err := c.cache.Get(ctx, redis.ScoreKey(entityID), &score)
	if err != nil || !found {
		return nil, false, err
	}
	return &score, true, nil
}

// Set implements contracts.ScoreCache
func (c *RedisCache) Set(ctx context.Context, entityID string, score *contracts.CompositeScore) error {
	return c.cache.Set(ctx, redis.ScoreKey(entityID), score, c.ttl)
}

// Invalidate implements contracts.ScoreCache
func (c *RedisCache) Invalidate(ctx context.Context, entityID string) error {
	return c.cache.Delete(ctx, redis.ScoreKey(entityID))
}

// InvalidateAll implements contracts.ScoreCache
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	n, err := c.cache.DeletePrefix(ctx, redis.ScoreKeyPrefix)
	if err != nil {
		return err
	}
	c.log.Info().Int("keys", n).Msg("score cache cleared")
	return nil
}
