package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/psyjobs/jobspy-api/internal/jobs"
)

// ScrapeFunc performs one scrape. It receives a context that keeps the
// request's values but is never cancelled by the client going away.
type ScrapeFunc func(ctx context.Context) (*jobs.Table, error)

// Pool bounds concurrent scrapes. Waiting for a worker follows the caller's
// context; once a scrape starts it runs to completion on its own goroutine,
// so an abandoned request still populates the cache.
type Pool struct {
	sem     *semaphore.Weighted
	size    int64
	dedupe  bool
	group   singleflight.Group
	metrics *Metrics

	mu      sync.Mutex
	flights map[string]*flight
}

// errAbandoned ends a queued shared scrape whose callers have all left.
var errAbandoned = errors.New("scrape abandoned by all callers")

// flight tracks the callers waiting on one shared scrape. Its context ends
// when the last of them leaves, so a queued shared scrape is abandoned only
// once nobody wants it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	waiters int
}

// NewPool creates a pool of workers. With dedupe, concurrent calls with the
// same key share one scrape.
func NewPool(workers int, dedupe bool, metrics *Metrics) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		size:    int64(workers),
		dedupe:  dedupe,
		metrics: metrics,
		flights: make(map[string]*flight),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return int(p.size)
}

type poolResult struct {
	table  *jobs.Table
	err    error
	shared bool
}

// Run executes fn on a worker and waits for its result or for ctx to end.
func (p *Pool) Run(ctx context.Context, key string, fn ScrapeFunc) (*jobs.Table, bool, error) {
	detached := context.WithoutCancel(ctx)

	var done <-chan poolResult
	if p.dedupe {
		done = p.shared(ctx, detached, key, fn)
	} else {
		done = p.single(ctx, detached, fn)
	}

	select {
	case r := <-done:
		if r.shared {
			p.metrics.sharedScrape()
		}
		return r.table, r.shared, r.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (p *Pool) single(ctx, detached context.Context, fn ScrapeFunc) <-chan poolResult {
	done := make(chan poolResult, 1)
	go func() {
		table, err := p.work(ctx, detached, fn)
		done <- poolResult{table: table, err: err}
	}()
	return done
}

// shared runs fn once per key for all concurrent callers. A caller that
// joins just as the previous flight is abandoned retries on a fresh one.
func (p *Pool) shared(ctx, detached context.Context, key string, fn ScrapeFunc) <-chan poolResult {
	done := make(chan poolResult, 1)
	go func() {
		for {
			r, waiting := p.await(ctx, detached, key, fn)
			if !waiting {
				return
			}
			if errors.Is(r.err, errAbandoned) && ctx.Err() == nil {
				continue
			}
			done <- r
			return
		}
	}()
	return done
}

func (p *Pool) await(ctx, detached context.Context, key string, fn ScrapeFunc) (poolResult, bool) {
	f := p.join(key)
	defer p.leave(key, f)

	ch := p.group.DoChan(key, func() (interface{}, error) {
		return p.work(f.ctx, detached, fn)
	})
	select {
	case r := <-ch:
		table, _ := r.Val.(*jobs.Table)
		return poolResult{table: table, err: r.Err, shared: r.Shared}, true
	case <-ctx.Done():
		return poolResult{}, false
	}
}

func (p *Pool) join(key string) *flight {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.flights[key]
	if !ok {
		fctx, cancel := context.WithCancelCause(context.Background())
		f = &flight{ctx: fctx, cancel: cancel}
		p.flights[key] = f
	}
	f.waiters++
	return f
}

func (p *Pool) leave(key string, f *flight) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel(errAbandoned)
	if p.flights[key] == f {
		delete(p.flights, key)
	}
}

func (p *Pool) work(ctx, detached context.Context, fn ScrapeFunc) (*jobs.Table, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			err = cause
		}
		return nil, fmt.Errorf("waiting for a scrape worker: %w", err)
	}
	defer p.sem.Release(1)

	p.metrics.workerStarted()
	defer p.metrics.workerDone()
	return fn(detached)
}
