package search

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/psyjobs/jobspy-api/internal/jobs"
	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/scraper"
)

var searchTracer = otel.Tracer("jobspy/search")

// ResultStore is the slice of the result cache the orchestrator needs.
type ResultStore interface {
	Get(ctx context.Context, fingerprint string) (*jobs.Table, bool)
	Put(ctx context.Context, fingerprint string, table *jobs.Table)
}

// Outcome is a completed search, before response shaping.
type Outcome struct {
	Query       *Query
	Params      Parameters
	Fingerprint string
	// Table holds the rows after post-cache filtering and sorting.
	Table  *jobs.Table
	Cached bool
}

// Orchestrator runs validate, defaults, cache lookup and scrape for one
// request. Authentication and rate limiting happen before it is called.
type Orchestrator struct {
	scraper  scraper.Scraper
	store    ResultStore
	defaults Defaults
	pool     *Pool
	logger   observability.Logger
	metrics  *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics records search outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPool replaces the default single-worker pool.
func WithPool(p *Pool) Option {
	return func(o *Orchestrator) {
		o.pool = p
	}
}

// NewOrchestrator creates an orchestrator. store may be nil to disable
// caching.
func NewOrchestrator(s scraper.Scraper, store ResultStore, defaults Defaults, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scraper:  s,
		store:    store,
		defaults: defaults,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pool == nil {
		o.pool = NewPool(1, false, o.metrics)
	}
	return o
}

// Search runs one request. Errors are *ValidationError, *ScrapeError or the
// context's error when the caller gave up waiting.
func (o *Orchestrator) Search(ctx context.Context, raw *RawRequest) (*Outcome, error) {
	ctx, span := searchTracer.Start(ctx, "search.orchestrate", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	logger := o.logger.WithContext(ctx)

	q, err := Validate(raw)
	if err != nil {
		o.metrics.search(ResultInvalid)
		span.SetStatus(codes.Error, "invalid parameters")
		logger.Info("search rejected", observability.Error(err))
		return nil, err
	}

	params := o.defaults.Apply(q)
	fp, err := Fingerprint(params)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.StringSlice("search.sites", params.SiteName))

	table, cached := o.lookup(ctx, fp)
	if !cached {
		table, err = o.scrape(ctx, fp, params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	span.SetAttributes(attribute.Bool("search.cached", cached))

	if cached {
		o.metrics.search(ResultCacheHit)
	} else {
		o.metrics.search(ResultScraped)
	}

	out := &Outcome{
		Query:       q,
		Params:      params,
		Fingerprint: fp,
		Table:       postProcess(table, q),
		Cached:      cached,
	}
	logger.Info("search completed",
		observability.Strings("sites", params.SiteName),
		observability.Int("jobs", out.Table.Len()),
		observability.Bool("cached", cached),
	)
	return out, nil
}

func (o *Orchestrator) lookup(ctx context.Context, fp string) (*jobs.Table, bool) {
	if o.store == nil {
		return nil, false
	}
	return o.store.Get(ctx, fp)
}

func (o *Orchestrator) scrape(ctx context.Context, fp string, params Parameters) (*jobs.Table, error) {
	table, _, err := o.pool.Run(ctx, fp, func(work context.Context) (*jobs.Table, error) {
		start := time.Now()
		t, err := o.scraper.Scrape(work, params)
		o.metrics.scrape(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = jobs.NewTable(nil)
		}
		if o.store != nil {
			o.store.Put(work, fp, t)
		}
		return t, nil
	})
	if err == nil {
		return table, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		o.logger.WithContext(ctx).Info("client went away while scraping")
		return nil, ctxErr
	}
	o.metrics.search(ResultScrapeError)
	o.logger.WithContext(ctx).Error("error scraping jobs",
		observability.Strings("sites", params.SiteName),
		observability.Error(err),
	)
	return nil, &ScrapeError{Err: err, Hint: Hint(err)}
}

func postProcess(t *jobs.Table, q *Query) *jobs.Table {
	if !q.Filter.IsZero() {
		t = q.Filter.Apply(t)
	}
	if q.SortBy != "" {
		t = jobs.Sort(t, q.SortBy, q.SortOrder)
	}
	return t
}
