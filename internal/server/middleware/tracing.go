package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/psyjobs/jobspy-api/internal/observability"
)

const (
	// TracerName is the instrumentation scope of server spans.
	TracerName = "jobspy-api"
	// SpanKey is the gin context key for the server span.
	SpanKey = "otel-span"
)

// Span attribute keys, following the current HTTP semantic conventions.
const (
	attrMethod       = attribute.Key("http.request.method")
	attrRoute        = attribute.Key("http.route")
	attrPath         = attribute.Key("url.path")
	attrQuery        = attribute.Key("url.query")
	attrServer       = attribute.Key("server.address")
	attrUserAgent    = attribute.Key("user_agent.original")
	attrClient       = attribute.Key("client.address")
	attrRequestID    = attribute.Key("http.request.id")
	attrStatus       = attribute.Key("http.response.status_code")
	attrResponseSize = attribute.Key("http.response.body.size")
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	// SkipPaths get no span. Probes are the usual candidates.
	SkipPaths []string
}

// Tracing starts a server span per request from the given provider.
func Tracing(provider trace.TracerProvider) gin.HandlerFunc {
	return TracingWithConfig(TracingConfig{TracerProvider: provider})
}

// TracingWithConfig starts a server span per request, continuing any trace
// propagated by the caller. The trace id is stored in the request context
// for log correlation.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	propagator := cfg.Propagators
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	tracer := provider.Tracer(TracerName)

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		parent := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, spanName(c),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(c)...),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			ctx = observability.ContextWithTraceID(ctx, sc.TraceID().String())
		}
		c.Set(SpanKey, span)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		finishSpan(span, c)
	}
}

// spanName is "METHOD route"; unmatched requests use the raw path.
func spanName(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.Request.Method + " " + route
}

func requestAttributes(c *gin.Context) []attribute.KeyValue {
	r := c.Request
	attrs := []attribute.KeyValue{
		attrMethod.String(r.Method),
		attrPath.String(r.URL.Path),
		attrServer.String(r.Host),
		attrClient.String(c.ClientIP()),
	}
	if route := c.FullPath(); route != "" {
		attrs = append(attrs, attrRoute.String(route))
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, attrQuery.String(r.URL.RawQuery))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, attrUserAgent.String(ua))
	}
	if id := GetRequestID(c); id != "" {
		attrs = append(attrs, attrRequestID.String(id))
	}
	return attrs
}

// finishSpan records the outcome. Only server faults mark the span as an
// error; rejected requests are expected traffic.
func finishSpan(span trace.Span, c *gin.Context) {
	status := c.Writer.Status()
	span.SetAttributes(
		attrStatus.Int(status),
		attrResponseSize.Int(c.Writer.Size()),
	)

	for _, e := range c.Errors {
		span.RecordError(e.Err)
	}

	if status >= http.StatusInternalServerError {
		msg := http.StatusText(status)
		if last := c.Errors.Last(); last != nil {
			msg = last.Error()
		}
		span.SetStatus(codes.Error, strconv.Itoa(status)+" "+msg)
	}
}

// GetSpan returns the server span of the request, nil when it is untraced.
func GetSpan(c *gin.Context) trace.Span {
	v, ok := c.Get(SpanKey)
	if !ok {
		return nil
	}
	span, _ := v.(trace.Span)
	return span
}
