package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
		want      string
	}{
		{name: "custom namespace", namespace: "custom", want: "custom"},
		{name: "empty namespace uses default", namespace: "", want: DefaultNamespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMetrics(tt.namespace)
			assert.Equal(t, tt.want, m.Namespace())
			assert.NotNil(t, m.Registry())
		})
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordRequest(http.MethodGet, "/api/v1/search_jobs", http.StatusOK, 150*time.Millisecond, 512)
	m.RecordRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond, -1)
	m.SetBuildInfo("1.0.0", "abc", "now")
	m.IncActive()
	m.DecActive()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `test_http_requests_total{method="GET",route="/api/v1/search_jobs",status="200"} 1`)
	assert.Contains(t, out, `route="unmatched"`)
	assert.Contains(t, out, `test_build_info{build_time="now",commit="abc",version="1.0.0"} 1`)
}

func TestMetrics_Register(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "component_total", Help: "x"})

	require.NoError(t, m.Register(c))
	assert.Error(t, m.Register(c), "duplicate registration must fail")
}

func TestMetrics_DurationHistogram(t *testing.T) {
	t.Parallel()

	m := NewMetrics("hist")
	m.RecordRequest(http.MethodPost, "/api/v1/search_jobs", http.StatusOK, 2*time.Second, 10)
	m.RecordRequest(http.MethodPost, "/api/v1/search_jobs", http.StatusOK, 4*time.Second, 10)

	observer, err := m.requestDuration.GetMetricWithLabelValues(http.MethodPost, "/api/v1/search_jobs", "200")
	require.NoError(t, err)

	var metric dto.Metric
	require.NoError(t, observer.(prometheus.Metric).Write(&metric))
	assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	assert.InDelta(t, 6.0, metric.GetHistogram().GetSampleSum(), 0.001)

	var active dto.Metric
	m.IncActive()
	require.NoError(t, m.activeRequests.Write(&active))
	assert.Equal(t, 1.0, active.GetGauge().GetValue())
}
