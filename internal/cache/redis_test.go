package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// setupMiniRedis creates a miniredis server for testing.
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newTestRedisCache(t *testing.T, mr *miniredis.Miniredis, ttl time.Duration) *redisCache {
	t.Helper()

	c, err := New(
		config.CacheConfig{Enabled: true, Type: config.BackendRedis, TTL: ttl},
		config.RedisConfig{URL: "redis://" + mr.Addr(), KeyPrefix: "test:"},
		observability.NopLogger(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	rc, ok := c.(*redisCache)
	require.True(t, ok)
	return rc
}

func TestRedisCache_SetAndGet(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", []byte("payload"), 0))
	assert.True(t, mr.Exists("test:cache:abc"))

	v, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), v)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_TTL(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, 30*time.Second, mr.TTL("test:cache:k"))

	mr.FastForward(31 * time.Second)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_ClearOnlyOwnPrefix(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "keep"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), 0))
	}

	require.NoError(t, c.Clear(ctx))

	assert.False(t, mr.Exists("test:cache:a"))
	assert.False(t, mr.Exists("test:cache:c"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_Delete(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("test:cache:k"))
}

func TestRedisCache_InjectedClientNotClosed(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := New(
		config.CacheConfig{Enabled: true, Type: config.BackendRedis, TTL: time.Minute},
		config.RedisConfig{},
		observability.NopLogger(),
		WithRedisClient(client),
	)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestRedisCache_Unreachable(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	addr := mr.Addr()
	mr.Close()

	c, err := New(
		config.CacheConfig{Enabled: true, Type: config.BackendRedis, TTL: time.Minute},
		config.RedisConfig{URL: "redis://" + addr},
		observability.NopLogger(),
	)
	assert.Error(t, err)
	assert.True(t, c == nil, "failed construction must yield an untyped nil Cache")
}

func TestRedisCache_GetFailsWhenServerGone(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, time.Minute)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
