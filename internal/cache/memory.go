package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// memoryCache is an in-process LRU with lazy expiry.
type memoryCache struct {
	logger     observability.Logger
	metrics    *Metrics
	clock      Clock
	maxEntries int
	defaultTTL time.Duration

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
}

type memoryEntry struct {
	key      string
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

// expired reports whether more than ttl has elapsed since the entry was stored.
func (e *memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

func newMemoryCache(cfg config.CacheConfig, logger observability.Logger, o *options) *memoryCache {
	c := &memoryCache{
		logger:     logger,
		metrics:    o.metrics,
		clock:      o.clock,
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.TTL,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
	}

	logger.Info("memory cache initialized",
		observability.Int("max_entries", c.maxEntries),
		observability.Duration("ttl", c.defaultTTL))

	return c
}

// Get returns the value unless it has expired, in which case the entry is
// removed and the call is a miss.
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("cache.backend", BackendMemory)),
	)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.metrics.miss(BackendMemory)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	entry := elem.Value.(*memoryEntry)
	if entry.expired(c.clock()) {
		c.removeElement(elem)
		c.metrics.miss(BackendMemory)
		c.metrics.setSize(BackendMemory, c.eviction.Len())
		span.SetAttributes(attribute.Bool("cache.hit", false))
		c.logger.Debug("cache entry expired", observability.String("key", key))
		return nil, ErrCacheMiss
	}

	c.eviction.MoveToFront(elem)
	c.metrics.hit(BackendMemory)
	span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("cache.value_size", len(entry.value)))

	return entry.value, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Set",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendMemory),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	entry := &memoryEntry{key: key, value: value, storedAt: c.clock(), ttl: ttl}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.eviction.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.eviction.PushFront(entry)
	for c.maxEntries > 0 && c.eviction.Len() > c.maxEntries {
		c.evictOldest()
	}
	c.metrics.setSize(BackendMemory, c.eviction.Len())

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Int("size", c.eviction.Len()))

	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		c.metrics.setSize(BackendMemory, c.eviction.Len())
	}
	return nil
}

func (c *memoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.eviction.Len()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.metrics.setSize(BackendMemory, 0)

	c.logger.Info("memory cache cleared", observability.Int("entries", n))
	return nil
}

func (c *memoryCache) Close() error {
	return c.Clear(context.Background())
}

// Len returns the number of stored entries, expired or not.
func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// DeleteExpired drops every expired entry and returns how many were removed.
func (c *memoryCache) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		c.metrics.setSize(BackendMemory, c.eviction.Len())
		c.logger.Debug("cache cleanup completed", observability.Int("removed", removed))
	}
	return removed
}

// evictOldest removes the least recently used entry. Must be called with lock held.
func (c *memoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.metrics.eviction(BackendMemory)
	}
}

// removeElement must be called with lock held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).key)
}
