package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-n-a-v/vettr/backend/pkg/config"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "test"), mr
}

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	cache := NewCache(client, "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "key", "v", time.Minute))
	n, err := cache.DeletePrefix(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_SetGetDelete(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Value int `json:"value"`
	}

	require.NoError(t, cache.Set(ctx, ScoreKey("ACME"), payload{Value: 42}, time.Hour))
	assert.True(t, mr.Exists("test:cache:score:ACME"))
	assert.Equal(t, time.Hour, mr.TTL("test:cache:score:ACME"))

	var got payload
	found, err := cache.Get(ctx, ScoreKey("ACME"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42, got.Value)

	require.NoError(t, cache.Delete(ctx, ScoreKey("ACME")))
	found, err = cache.Get(ctx, ScoreKey("ACME"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_ExpiresWithTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	var got string
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_DeletePrefix(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, cache.Set(ctx, ScoreKey(fmt.Sprintf("E%03d", i)), i, time.Hour))
	}
	require.NoError(t, mr.Set("test:cache:other", "keep"))

	n, err := cache.DeletePrefix(ctx, ScoreKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, []string{"test:cache:other"}, mr.Keys())
}
