package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/jobs"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// scraperTracer is the OTEL tracer used for outbound scrapes.
var scraperTracer = otel.Tracer("jobspy/scraper")

const (
	maxResponseBytes = 64 << 20
	maxErrorBodyLen  = 512
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// HTTPClient calls an external scraping service over HTTP.
type HTTPClient struct {
	url     string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	pacer   *rate.Limiter
	logger  observability.Logger
	metrics *Metrics
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithMetrics records call outcomes and breaker state.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient creates a client for cfg.URL. A positive cfg.RateLimit paces
// outbound calls to that many per second.
func NewHTTPClient(cfg config.ScraperConfig, opts ...ClientOption) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("scraper URL is required")
	}

	c := &HTTPClient{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Transport: NewTransport(DefaultTransportConfig())}
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.pacer = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	c.breaker = c.newBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout)
	return c, nil
}

func (c *HTTPClient) newBreaker(threshold int, timeout time.Duration) *gobreaker.CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	minRequests := safeIntToUint32(threshold)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scraper",
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *Error
			return errors.As(err, &se) && se.clientFault()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			c.metrics.transition(from.String(), to.String(), int(to))

			_, span := scraperTracer.Start(context.Background(), "circuitbreaker.state_change",
				trace.WithSpanKind(trace.SpanKindInternal))
			span.AddEvent("state_change", trace.WithAttributes(
				attribute.String("circuitbreaker.name", name),
				attribute.String("circuitbreaker.from", from.String()),
				attribute.String("circuitbreaker.to", to.String()),
			))
			span.End()
		},
	})
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// BreakerState returns "closed", "half-open" or "open".
func (c *HTTPClient) BreakerState() string {
	return c.breaker.State().String()
}

// Check fails while the breaker is open, for readiness probes.
func (c *HTTPClient) Check(context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

// Scrape implements Scraper.
func (c *HTTPClient) Scrape(ctx context.Context, req Request) (*jobs.Table, error) {
	ctx, span := scraperTracer.Start(ctx, "scraper.scrape",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.StringSlice("scraper.sites", req.SiteName),
			attribute.Int("scraper.results_wanted", req.ResultsWanted),
		))
	defer span.End()

	table, err := c.scrape(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("scraper.rows", table.Len()))
	return table, nil
}

func (c *HTTPClient) scrape(ctx context.Context, req Request) (*jobs.Table, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			c.metrics.observe(OutcomeRejected, -1)
			return nil, &Error{Message: "scrape aborted while waiting for the outbound rate limit", Err: err}
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, req)
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.observe(OutcomeRejected, -1)
			return nil, &Error{Message: "The scraping service is temporarily unavailable", Err: ErrCircuitOpen}
		}
		c.metrics.observe(OutcomeFailure, elapsed)
		c.logger.WithContext(ctx).Error("scrape failed",
			observability.Strings("sites", req.SiteName),
			observability.Error(err),
		)
		return nil, err
	}

	c.metrics.observe(OutcomeSuccess, elapsed)
	return out.(*jobs.Table), nil
}

func (c *HTTPClient) do(ctx context.Context, req Request) (*jobs.Table, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scrape request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build scrape request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if id := observability.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	observability.InjectTraceContext(ctx, httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Message: fmt.Sprintf("scrape timeout after %s", c.timeout), Err: err}
		}
		return nil, &Error{Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "failed to read scraper response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: upstreamMessage(resp.StatusCode, data)}
	}

	table, err := DecodeResult(data)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "invalid scraper response", Err: err}
	}
	return table, nil
}

// DecodeResult accepts {"columns":[...],"rows":[[...]]}, {"jobs":[{...}]} or a
// bare array of job objects.
func DecodeResult(data []byte) (*jobs.Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var records []*jobs.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return jobs.NewTable(compact(records)), nil
	}

	var probe struct {
		Columns json.RawMessage `json:"columns"`
		Jobs    []*jobs.Record  `json:"jobs"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch {
	case probe.Columns != nil:
		return jobs.Decode(data)
	case probe.Jobs != nil:
		return jobs.NewTable(compact(probe.Jobs)), nil
	default:
		return nil, errors.New(`response has neither "columns" nor "jobs"`)
	}
}

func compact(records []*jobs.Record) []*jobs.Record {
	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// upstreamMessage extracts a readable explanation from an error body.
func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyLen {
		text = text[:maxErrorBodyLen]
	}
	if text == "" {
		return fmt.Sprintf("scraper returned %d %s", status, http.StatusText(status))
	}
	return text
}
