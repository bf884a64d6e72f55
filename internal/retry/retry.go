// Package retry runs an operation again with exponential backoff when it
// fails with a transient error.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy defaults.
const (
	DefaultAttempts = 3
	DefaultInitial  = 50 * time.Millisecond
	DefaultMax      = time.Second
	DefaultJitter   = 0.25
)

// Policy controls how many times and how fast an operation is retried.
type Policy struct {
	// Attempts is the number of retries after the first call.
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	// Jitter is the fraction (0..1) of random extra wait added to each backoff.
	Jitter float64
}

// DefaultPolicy returns the policy used for backing store calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: DefaultAttempts,
		Initial:  DefaultInitial,
		Max:      DefaultMax,
		Jitter:   DefaultJitter,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 0 {
		p.Attempts = 0
	}
	if p.Initial <= 0 {
		p.Initial = DefaultInitial
	}
	if p.Max <= 0 {
		p.Max = DefaultMax
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}

// Do calls fn until it succeeds, the policy runs out of attempts, the
// context ends, or retryable reports the error as permanent. A nil
// retryable retries every error.
func Do(ctx context.Context, p Policy, fn func() error, retryable func(error) bool) error {
	p = p.normalized()

	var err error
	for attempt := 0; attempt <= p.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(Backoff(attempt, p))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// Backoff returns the wait before retry number attempt (0-based).
func Backoff(attempt int, p Policy) time.Duration {
	p = p.normalized()
	d := float64(p.Initial) * math.Pow(2, float64(attempt))
	//nolint:gosec // G404: jitter for retry timing is not security-sensitive
	d += d * p.Jitter * rand.Float64()
	if d > float64(p.Max) {
		d = float64(p.Max)
	}
	return time.Duration(d)
}
