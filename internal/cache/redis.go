package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/retry"
)

// scanBatch is the COUNT hint used while clearing.
const scanBatch = 500

// isRetryableRedisError retries connection problems but not misses or
// cancellations.
func isRetryableRedisError(err error) bool {
	return err != nil &&
		!errors.Is(err, redis.Nil) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// redisCache stores entries under a key prefix; redis expires them.
type redisCache struct {
	logger     observability.Logger
	metrics    *Metrics
	client     redis.UniversalClient
	ownsClient bool
	keyPrefix  string
	defaultTTL time.Duration
}

func newRedisCache(
	cfg config.CacheConfig, redisCfg config.RedisConfig, logger observability.Logger, o *options,
) (*redisCache, error) {
	client := o.redisClient
	owns := false
	if client == nil {
		opts, err := redis.ParseURL(redisCfg.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrInvalidConfig, err)
		}
		client = redis.NewClient(opts)
		owns = true
	}

	if err := pingRedis(client); err != nil {
		if owns {
			_ = client.Close()
		}
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	c := &redisCache{
		logger:     logger,
		metrics:    o.metrics,
		client:     client,
		ownsClient: owns,
		keyPrefix:  resolveKeyPrefix(redisCfg.KeyPrefix) + "cache:",
		defaultTTL: cfg.TTL,
	}

	logger.Info("redis cache initialized",
		observability.String("key_prefix", c.keyPrefix),
		observability.Duration("ttl", c.defaultTTL))

	return c, nil
}

// pingRedis tests the Redis connection with a timeout.
func pingRedis(client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// resolveKeyPrefix returns the key prefix, defaulting to "jobspy:" if empty.
func resolveKeyPrefix(prefix string) string {
	if prefix == "" {
		return "jobspy:"
	}
	return prefix
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("cache.backend", BackendRedis)),
	)
	defer span.End()

	var value []byte
	err := retry.Do(ctx, retry.DefaultPolicy(), func() error {
		v, getErr := c.client.Get(ctx, c.keyPrefix+key).Bytes()
		value = v
		return getErr
	}, isRetryableRedisError)

	switch {
	case err == nil:
		c.metrics.hit(BackendRedis)
		span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("cache.value_size", len(value)))
		return value, nil
	case errors.Is(err, redis.Nil):
		c.metrics.miss(BackendRedis)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	default:
		c.fail(span, "get", key, err)
		return nil, err
	}
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Set",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	err := retry.Do(ctx, retry.DefaultPolicy(), func() error {
		return c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err()
	}, isRetryableRedisError)
	if err != nil {
		c.fail(span, "set", key, err)
		return err
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	err := retry.Do(ctx, retry.DefaultPolicy(), func() error {
		return c.client.Del(ctx, c.keyPrefix+key).Err()
	}, isRetryableRedisError)
	if err != nil {
		c.metrics.failure(BackendRedis, "delete")
		return err
	}
	return nil
}

// Clear deletes every key under the cache prefix using SCAN so large
// keyspaces are not blocked.
func (c *redisCache) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", scanBatch).Result()
		if err != nil {
			c.metrics.failure(BackendRedis, "clear")
			return fmt.Errorf("scan %s*: %w", c.keyPrefix, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.metrics.failure(BackendRedis, "clear")
				return fmt.Errorf("delete cached keys: %w", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("redis cache cleared", observability.Int64("entries", removed))
	return nil
}

func (c *redisCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

func (c *redisCache) fail(span trace.Span, op, key string, err error) {
	c.metrics.failure(BackendRedis, op)
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	c.logger.Error("redis cache "+op+" failed",
		observability.String("key", key),
		observability.Error(err))
}
