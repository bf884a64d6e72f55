package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	_, client := setupRedis(t)
	now := epoch
	l := NewRedisLimiter(client, 3, 60*time.Second, "test:",
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		assert.Equal(t, 3-i-1, res.Remaining)
		now = now.Add(time.Second)
	}

	now = epoch.Add(10 * time.Second)
	res, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 50*time.Second, res.RetryAfter)

	now = epoch.Add(60 * time.Second)
	res, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_KeyLayout(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	l := NewRedisLimiter(client, 5, time.Minute, "test:")

	_, err := l.Allow(context.Background(), "abc")
	require.NoError(t, err)
	_, err = l.Allow(context.Background(), "abc")
	require.NoError(t, err)

	members, err := mr.ZMembers("test:ratelimit:abc")
	require.NoError(t, err)
	assert.Len(t, members, 2, "each admitted request gets a distinct member")
	assert.Positive(t, mr.TTL("test:ratelimit:abc"))
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	t.Parallel()

	mr, client := setupRedis(t)
	core, logs := observer.New(zap.WarnLevel)
	m := NewMetrics("test")
	l := NewRedisLimiter(client, 1, time.Minute, "", WithLogger(zap.New(core)), WithMetrics(m))

	mr.Close()

	res, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, logs.FilterMessage("redis rate limiter unavailable, admitting request").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues(DecisionFailOpen)))
	assert.Error(t, l.Ping(context.Background()))
}
