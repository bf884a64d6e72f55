package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SlidingWindowLimiter keeps the timestamps of admitted requests per key
// and admits a request when fewer than limit fall inside the trailing window.
type SlidingWindowLimiter struct {
	limit   int
	window  time.Duration
	clock   func() time.Time
	metrics *Metrics
	logger  *zap.Logger

	windows sync.Map
	tracked atomic.Int64
}

// window is the state for one client. dead is set under mu when Sweep
// removes the window from the map; an admit that observes it starts over
// with the current map entry.
type window struct {
	mu       sync.Mutex
	requests []time.Time
	dead     bool
}

// NewSlidingWindowLimiter creates an in-memory limiter.
func NewSlidingWindowLimiter(limit int, window time.Duration, opts ...Option) *SlidingWindowLimiter {
	o := buildOptions(opts)
	return &SlidingWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   o.clock,
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Allow implements Limiter.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (*Result, error) {
	res := l.AllowAt(key, l.clock())
	l.metrics.decision(res.Allowed)
	if !res.Allowed {
		l.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Duration("retry_after", res.RetryAfter))
	}
	return res, nil
}

// AllowAt decides for a request arriving at now. Timestamps at or before
// now-window have left the window.
func (l *SlidingWindowLimiter) AllowAt(key string, now time.Time) *Result {
	for {
		w := l.load(key)

		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		res := l.decide(w, now)
		w.mu.Unlock()
		return res
	}
}

func (l *SlidingWindowLimiter) load(key string) *window {
	if v, ok := l.windows.Load(key); ok {
		return v.(*window)
	}
	v, loaded := l.windows.LoadOrStore(key, &window{})
	if !loaded {
		l.metrics.setTracked(int(l.tracked.Add(1)))
	}
	return v.(*window)
}

// decide must be called with w.mu held.
func (l *SlidingWindowLimiter) decide(w *window, now time.Time) *Result {
	w.prune(now.Add(-l.window))

	count := len(w.requests)
	if count >= l.limit {
		var wait time.Duration
		if count > 0 {
			wait = w.requests[0].Add(l.window).Sub(now)
		}
		if wait < 0 {
			wait = 0
		}
		return &Result{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			Window:     l.window,
			ResetAfter: wait,
			RetryAfter: wait,
		}
	}

	w.requests = append(w.requests, now)
	return &Result{
		Allowed:    true,
		Limit:      l.limit,
		Remaining:  l.limit - count - 1,
		Window:     l.window,
		ResetAfter: w.requests[0].Add(l.window).Sub(now),
	}
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// arrival order so the kept ones are a suffix.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.requests) && !w.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.requests = append(w.requests[:0], w.requests[i:]...)
	}
}

// Sweep prunes every window and forgets clients with no timestamps left.
// It returns the number of clients removed.
func (l *SlidingWindowLimiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.window)
	removed := 0

	l.windows.Range(func(key, value any) bool {
		w := value.(*window)
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.requests) == 0 {
			w.dead = true
			if l.windows.CompareAndDelete(key, w) {
				l.tracked.Add(-1)
				removed++
			}
		}
		w.mu.Unlock()
		return true
	})

	if removed > 0 {
		l.logger.Debug("rate limit windows swept", zap.Int("removed", removed))
	}
	l.metrics.setTracked(l.Tracked())
	return removed
}

// SweepNow runs Sweep with the limiter clock.
func (l *SlidingWindowLimiter) SweepNow() int {
	return l.Sweep(l.clock())
}

// Tracked returns the number of clients with state.
func (l *SlidingWindowLimiter) Tracked() int {
	return int(l.tracked.Load())
}

// Reset forgets a client.
func (l *SlidingWindowLimiter) Reset(key string) {
	if v, ok := l.windows.LoadAndDelete(key); ok {
		l.tracked.Add(-1)
		l.metrics.setTracked(l.Tracked())
		w := v.(*window)
		w.mu.Lock()
		w.dead = true
		w.mu.Unlock()
	}
}
