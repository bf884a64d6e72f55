package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psyjobs/jobspy-api/internal/observability"
)

// Overall and per-check states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// DefaultReadinessTimeout bounds one readiness run.
const DefaultReadinessTimeout = 5 * time.Second

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Critical  bool      `json:"critical"`
	Duration  string    `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// Readiness is the combined outcome of every check.
type Readiness struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// Ready reports whether no critical check failed.
func (r *Readiness) Ready() bool {
	return r.Status != StatusError
}

// Checker runs the registered checks.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	logger    observability.Logger
	metrics   *Metrics

	mu     sync.RWMutex
	checks []HealthCheck
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds each readiness run.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records check outcomes.
func WithMetrics(m *Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// NewChecker creates a checker with no checks.
func NewChecker(version string, logger observability.Logger, opts ...Option) *Checker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	c := &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultReadinessTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the reported service version.
func (c *Checker) Version() string {
	return c.version
}

// Uptime returns the time since the checker was created.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// AddCheck registers a check. A check with the same name is replaced.
func (c *Checker) AddCheck(check HealthCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.checks {
		if existing.Name() == check.Name() {
			c.checks[i] = check
			return
		}
	}
	c.checks = append(c.checks, check)
}

// Readiness runs every check concurrently and combines the results.
func (c *Checker) Readiness(ctx context.Context) *Readiness {
	c.mu.RLock()
	checks := make([]HealthCheck, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status := &Readiness{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult, len(checks)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, check := range checks {
		wg.Add(1)
		go func(hc HealthCheck) {
			defer wg.Done()

			start := time.Now()
			err := hc.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:    StatusOK,
				Critical:  isCritical(hc),
				Duration:  duration.String(),
				Timestamp: time.Now().UTC(),
			}
			c.metrics.record(hc.Name(), err == nil)

			mu.Lock()
			defer mu.Unlock()
			status.Checks[hc.Name()] = result

			if err == nil {
				return
			}
			result.Status = StatusError
			result.Error = err.Error()
			switch {
			case result.Critical:
				status.Status = StatusError
			case status.Status == StatusOK:
				status.Status = StatusDegraded
			}

			c.logger.Warn("health check failed",
				observability.String("check", hc.Name()),
				observability.Bool("critical", result.Critical),
				observability.Error(err),
				observability.Duration("duration", duration),
			)
		}(check)
	}

	wg.Wait()
	return status
}

// ReadinessHandler serves the readiness report, 503 when not ready.
func (c *Checker) ReadinessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := c.Readiness(ctx.Request.Context())

		code := http.StatusOK
		if !status.Ready() {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, status)
	}
}

// LivenessHandler answers {"status":"ok"} while the process runs.
func (c *Checker) LivenessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": StatusOK})
	}
}
