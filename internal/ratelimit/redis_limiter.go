package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// slidingWindowScript prunes, counts and admits atomically over a ZSET of
// request timestamps in milliseconds. Scores at or before now-window are
// removed, matching the in-memory limiter.
// Returns: allowed (0 or 1), remaining, ms until the oldest entry leaves.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)

	local count = redis.call('ZCARD', key)
	local allowed = 0
	if count < limit then
		redis.call('ZADD', key, now, member)
		count = count + 1
		allowed = 1
	end

	redis.call('PEXPIRE', key, window_ms)

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_ms = 0
	if #oldest > 0 then
		reset_ms = tonumber(oldest[2]) + window_ms - now
	end

	return {allowed, limit - count, reset_ms}
`)

// RedisLimiter shares the sliding window across gateway replicas. Redis
// failures admit the request.
type RedisLimiter struct {
	client    redis.UniversalClient
	limit     int
	window    time.Duration
	keyPrefix string
	clock     func() time.Time
	metrics   *Metrics
	logger    *zap.Logger
}

// NewRedisLimiter creates a limiter storing windows under keyPrefix+"ratelimit:".
func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration, keyPrefix string, opts ...Option) *RedisLimiter {
	o := buildOptions(opts)
	if keyPrefix == "" {
		keyPrefix = "jobspy:"
	}
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix + "ratelimit:",
		clock:     o.clock,
		metrics:   o.metrics,
		logger:    o.logger,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	res, err := l.allow(ctx, key)
	if err != nil {
		l.metrics.failOpen()
		l.logger.Warn("redis rate limiter unavailable, admitting request",
			zap.String("key", key),
			zap.Error(err))
		return &Result{Allowed: true, Limit: l.limit, Remaining: l.limit - 1, Window: l.window}, nil
	}
	l.metrics.decision(res.Allowed)
	return res, nil
}

func (l *RedisLimiter) allow(ctx context.Context, key string) (*Result, error) {
	now := l.clock().UnixMilli()
	vals, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.keyPrefix + key},
		l.limit, l.window.Milliseconds(), now, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script reply of %d values", len(vals))
	}

	remaining := int(vals[1])
	if remaining < 0 {
		remaining = 0
	}
	reset := time.Duration(vals[2]) * time.Millisecond
	if reset < 0 {
		reset = 0
	}

	res := &Result{
		Allowed:    vals[0] == 1,
		Limit:      l.limit,
		Remaining:  remaining,
		Window:     l.window,
		ResetAfter: reset,
	}
	if !res.Allowed {
		res.RetryAfter = reset
	}
	return res, nil
}

// Ping checks the backing store, for readiness probes.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
