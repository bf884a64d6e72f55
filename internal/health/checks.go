package health

import (
	"context"
	"sync"
	"time"
)

// HealthCheck is one named probe of a dependency.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// DependencyCheck adapts a function to HealthCheck.
type DependencyCheck struct {
	name     string
	checkFn  func(ctx context.Context) error
	critical bool
}

// DependencyCheckOption configures a DependencyCheck.
type DependencyCheckOption func(*DependencyCheck)

// WithCritical sets whether a failure makes the service unready. Checks are
// critical by default.
func WithCritical(critical bool) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.critical = critical
	}
}

// NewDependencyCheck creates a check from a function.
func NewDependencyCheck(name string, checkFn func(ctx context.Context) error, opts ...DependencyCheckOption) *DependencyCheck {
	d := &DependencyCheck{name: name, checkFn: checkFn, critical: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the check name.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Check runs the probe.
func (d *DependencyCheck) Check(ctx context.Context) error {
	return d.checkFn(ctx)
}

// IsCritical reports whether a failure makes the service unready.
func (d *DependencyCheck) IsCritical() bool {
	return d.critical
}

// Pinger is anything with a connectivity probe, such as the result cache or
// the redis rate limiter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes p.Ping.
func PingCheck(name string, p Pinger, opts ...DependencyCheckOption) *DependencyCheck {
	return NewDependencyCheck(name, p.Ping, opts...)
}

// CachedHealthCheck reuses the last result for a while so frequent probes do
// not hit the dependency every time.
type CachedHealthCheck struct {
	check      HealthCheck
	cacheTTL   time.Duration
	now        func() time.Time
	mu         sync.RWMutex
	lastCheck  time.Time
	lastResult error
}

// NewCachedHealthCheck wraps check with a result cache.
func NewCachedHealthCheck(check HealthCheck, cacheTTL time.Duration) *CachedHealthCheck {
	return &CachedHealthCheck{check: check, cacheTTL: cacheTTL, now: time.Now}
}

// Name returns the wrapped check's name.
func (c *CachedHealthCheck) Name() string {
	return c.check.Name()
}

// IsCritical follows the wrapped check.
func (c *CachedHealthCheck) IsCritical() bool {
	return isCritical(c.check)
}

// Check returns the cached result while it is fresh.
func (c *CachedHealthCheck) Check(ctx context.Context) error {
	c.mu.RLock()
	if !c.lastCheck.IsZero() && c.now().Sub(c.lastCheck) < c.cacheTTL {
		result := c.lastResult
		c.mu.RUnlock()
		return result
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if !c.lastCheck.IsZero() && c.now().Sub(c.lastCheck) < c.cacheTTL {
		return c.lastResult
	}

	c.lastResult = c.check.Check(ctx)
	c.lastCheck = c.now()
	return c.lastResult
}

func isCritical(check HealthCheck) bool {
	if c, ok := check.(interface{ IsCritical() bool }); ok {
		return c.IsCritical()
	}
	return true
}
