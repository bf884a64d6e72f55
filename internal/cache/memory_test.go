package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestMemoryCache(t *testing.T, maxEntries int, ttl time.Duration, clock *fakeClock) *memoryCache {
	t.Helper()

	c, err := New(config.CacheConfig{
		Enabled:    true,
		Type:       config.BackendMemory,
		TTL:        ttl,
		MaxEntries: maxEntries,
	}, config.RedisConfig{}, observability.NopLogger(), WithClock(clock.Now))
	require.NoError(t, err)

	mc, ok := c.(*memoryCache)
	require.True(t, ok)
	return mc
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0, time.Minute, newFakeClock())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), 0))

	value, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), value)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestMemoryCache(t, 0, 60*time.Second, clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	clock.Advance(60 * time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err, "an entry exactly ttl old is still valid")

	clock.Advance(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestMemoryCache_SetOverwritesAndRefreshes(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestMemoryCache(t, 0, 10*time.Second, clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("old"), 0))
	clock.Advance(8 * time.Second)
	require.NoError(t, c.Set(ctx, "k", []byte("new"), 0))
	clock.Advance(8 * time.Second)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 2, time.Minute, newFakeClock())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryCache_DeleteExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestMemoryCache(t, 0, time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", []byte("1"), 0))
	clock.Advance(45 * time.Second)
	require.NoError(t, c.Set(ctx, "fresh", []byte("2"), 0))
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, c.DeleteExpired())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.DeleteExpired())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0, time.Minute, newFakeClock())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "never-set"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
	require.NoError(t, c.Close())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 50, time.Minute, newFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
