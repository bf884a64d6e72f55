package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, tracer.Enabled())
	assert.NotNil(t, tracer.Provider())

	_, span := tracer.StartSpan(context.Background(), "noop")
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutExporter(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{Enabled: true, SamplingRate: 1.0, ServiceName: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	assert.True(t, tracer.Enabled())

	ctx, span := tracer.StartSpan(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	InjectTraceContext(ctx, req)
	span.End()

	assert.NotEmpty(t, req.Header.Get("traceparent"))
}

func TestNewTracer_WithExporterAndEnvironment(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{
		Enabled:        true,
		SamplingRate:   0.5,
		ServiceName:    "test",
		ServiceVersion: "1.2.3",
		Environment:    "staging",
		OTLPEndpoint:   "http://127.0.0.1:4317",
	})
	require.NoError(t, err)
	assert.True(t, tracer.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tracer.Shutdown(ctx)
}

func TestServiceResource(t *testing.T) {
	t.Parallel()

	res, err := serviceResource(TracerConfig{
		ServiceName:    "jobspy-api",
		ServiceVersion: "1.2.3",
		Environment:    "staging",
	})
	require.NoError(t, err)

	set := res.Set()
	name, ok := set.Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "jobspy-api", name.AsString())

	version, ok := set.Value(attribute.Key("service.version"))
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())

	env, ok := set.Value(attribute.Key("deployment.environment.name"))
	require.True(t, ok)
	assert.Equal(t, "staging", env.AsString())

	_, ok = set.Value(attribute.Key("telemetry.sdk.name"))
	assert.True(t, ok, "default SDK attributes survive the merge")
}

func TestSamplerFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestSplitEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint     string
		wantHost     string
		wantInsecure bool
	}{
		{endpoint: "collector:4317", wantHost: "collector:4317", wantInsecure: true},
		{endpoint: "http://collector:4317/", wantHost: "collector:4317", wantInsecure: true},
		{endpoint: "https://otel.example.com:443", wantHost: "otel.example.com:443", wantInsecure: false},
		{endpoint: "  collector:4317  ", wantHost: "collector:4317", wantInsecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, insecure := splitEndpoint(tt.endpoint)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantInsecure, insecure)
		})
	}
}
