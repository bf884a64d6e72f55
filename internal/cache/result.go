package cache

import (
	"context"
	"errors"
	"time"

	"github.com/psyjobs/jobspy-api/internal/jobs"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// ResultCache maps a search fingerprint to the table the scraper returned.
type ResultCache struct {
	store  Cache
	ttl    time.Duration
	logger observability.Logger
}

// NewResultCache wraps a byte store. ttl of 0 defers to the store default.
func NewResultCache(store Cache, ttl time.Duration, logger observability.Logger) *ResultCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

// Get returns the cached table. ok is false on a miss, an expired entry,
// a backend failure or an undecodable entry; the last two are logged.
func (rc *ResultCache) Get(ctx context.Context, fingerprint string) (*jobs.Table, bool) {
	data, err := rc.store.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			rc.logger.WithContext(ctx).Warn("result cache lookup failed",
				observability.String("fingerprint", fingerprint),
				observability.Error(err))
		}
		return nil, false
	}

	table, err := jobs.Decode(data)
	if err != nil {
		rc.logger.WithContext(ctx).Warn("dropping undecodable cache entry",
			observability.String("fingerprint", fingerprint),
			observability.Error(err))
		_ = rc.store.Delete(ctx, fingerprint)
		return nil, false
	}
	return table, true
}

// Put stores a table. Failures are logged and otherwise ignored; a cache
// that cannot write behaves like a disabled one.
func (rc *ResultCache) Put(ctx context.Context, fingerprint string, table *jobs.Table) {
	data, err := jobs.Encode(table)
	if err != nil {
		rc.logger.WithContext(ctx).Warn("failed to encode result table", observability.Error(err))
		return
	}
	if err := rc.store.Set(ctx, fingerprint, data, rc.ttl); err != nil {
		rc.logger.WithContext(ctx).Warn("result cache store failed",
			observability.String("fingerprint", fingerprint),
			observability.Error(err))
	}
}

// Clear removes every cached table.
func (rc *ResultCache) Clear(ctx context.Context) error {
	return rc.store.Clear(ctx)
}

// DeleteExpired sweeps expired entries when the backend needs it.
func (rc *ResultCache) DeleteExpired() int {
	if j, ok := rc.store.(Janitor); ok {
		return j.DeleteExpired()
	}
	return 0
}

// Backend returns the name of the underlying store.
func (rc *ResultCache) Backend() string {
	return BackendName(rc.store)
}

// Enabled reports whether results are actually stored.
func (rc *ResultCache) Enabled() bool {
	_, disabled := rc.store.(disabledCache)
	return !disabled
}

// Ping checks the backend is reachable, for readiness probes.
func (rc *ResultCache) Ping(ctx context.Context) error {
	if r, ok := rc.store.(*redisCache); ok {
		return r.client.Ping(ctx).Err()
	}
	return nil
}
