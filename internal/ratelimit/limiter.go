// Package ratelimit provides sliding window rate limiting for the search API.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/psyjobs/jobspy-api/internal/config"
)

// Limiter decides whether one more request from key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Result represents the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests left after this one.
	Remaining int

	// Window is the length of the sliding window.
	Window time.Duration

	// ResetAfter is the time until the oldest counted request leaves the window.
	ResetAfter time.Duration

	// RetryAfter is the time to wait before retrying when not allowed.
	RetryAfter time.Duration
}

// NoopLimiter admits everything. It is used when rate limiting is disabled.
type NoopLimiter struct{}

// NewNoopLimiter creates a new noop limiter.
func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

// Allow implements Limiter.
func (*NoopLimiter) Allow(context.Context, string) (*Result, error) {
	return &Result{Allowed: true}, nil
}

// IsNoop reports whether l enforces nothing.
func IsNoop(l Limiter) bool {
	_, ok := l.(*NoopLimiter)
	return ok
}

// New builds the limiter selected by the configuration. client is required
// only for the redis store.
func New(cfg config.RateLimitConfig, client redis.UniversalClient, keyPrefix string, metrics *Metrics, logger *zap.Logger) (Limiter, error) {
	if !cfg.Enabled {
		return NewNoopLimiter(), nil
	}
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit requires positive requests and window, got %d per %s", cfg.Requests, cfg.Window)
	}

	switch cfg.Store {
	case config.BackendMemory, "":
		return NewSlidingWindowLimiter(cfg.Requests, cfg.Window,
			WithMetrics(metrics), WithLogger(logger)), nil
	case config.BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis rate limit store requires a redis client")
		}
		return NewRedisLimiter(client, cfg.Requests, cfg.Window, keyPrefix,
			WithMetrics(metrics), WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.Store)
	}
}

type limiterOptions struct {
	clock   func() time.Time
	metrics *Metrics
	logger  *zap.Logger
}

// Option configures a limiter.
type Option func(*limiterOptions)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *limiterOptions) {
		o.clock = clock
	}
}

// WithMetrics records decisions.
func WithMetrics(m *Metrics) Option {
	return func(o *limiterOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *limiterOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) *limiterOptions {
	o := &limiterOptions{clock: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
