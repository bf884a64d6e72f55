// Package cache stores scrape results keyed by search fingerprint.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found or has expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)

// Backend names reported in metrics and health output.
const (
	BackendMemory   = config.BackendMemory
	BackendRedis    = config.BackendRedis
	BackendDisabled = "disabled"
)

// cacheTracerName is the OpenTelemetry tracer name for cache operations.
const cacheTracerName = "jobspy/cache"

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A ttl of 0 uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this cache.
	Clear(ctx context.Context) error

	Close() error
}

// Janitor is implemented by backends that must drop expired entries
// themselves. Redis expires keys on its own and does not implement it.
type Janitor interface {
	DeleteExpired() int
}

// Clock returns the current time.
type Clock func() time.Time

type options struct {
	clock       Clock
	metrics     *Metrics
	redisClient redis.UniversalClient
}

// Option configures New.
type Option func(*options)

// WithClock replaces time.Now for expiry decisions in the memory backend.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMetrics records cache activity.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRedisClient uses an existing client instead of dialing REDIS_URL.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// New creates the backend selected by the configuration.
func New(cfg config.CacheConfig, redisCfg config.RedisConfig, logger observability.Logger, opts ...Option) (Cache, error) {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	if !cfg.Enabled {
		return newDisabledCache(), nil
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}

	switch cfg.Type {
	case BackendMemory, "":
		return newMemoryCache(cfg, logger, o), nil
	case BackendRedis:
		c, err := newRedisCache(cfg, redisCfg, logger, o)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache type %q", ErrInvalidConfig, cfg.Type)
	}
}

// BackendName reports which backend c is.
func BackendName(c Cache) string {
	switch c.(type) {
	case *memoryCache:
		return BackendMemory
	case *redisCache:
		return BackendRedis
	default:
		return BackendDisabled
	}
}

// disabledCache never stores anything.
type disabledCache struct{}

func newDisabledCache() Cache {
	return disabledCache{}
}

func (disabledCache) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (disabledCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (disabledCache) Delete(context.Context, string) error {
	return nil
}

func (disabledCache) Clear(context.Context) error {
	return nil
}

func (disabledCache) Close() error {
	return nil
}
