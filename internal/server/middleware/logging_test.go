package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/psyjobs/jobspy-api/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var fromContext string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		fromContext = observability.RequestIDFromContext(c.Request.Context())
		assert.Equal(t, fromContext, GetRequestID(c))
		c.Status(http.StatusOK)
	})

	t.Run("generates an id", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, fromContext)
	})

	t.Run("reuses the client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "client-id")

		w := serve(router, req)

		assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "client-id", fromContext)
	})
}

func TestGetRequestID_Missing(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "success logs info", path: "/jobs", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "client error logs warn", path: "/jobs", status: http.StatusBadRequest, wantLevel: zapcore.WarnLevel},
		{name: "server error logs error", path: "/jobs", status: http.StatusInternalServerError, wantLevel: zapcore.ErrorLevel},
		{name: "probe logs debug", path: "/health", status: http.StatusServiceUnavailable, wantLevel: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.DebugLevel)
			router := gin.New()
			router.Use(RequestID(), AccessLog(zap.New(core)))
			router.GET(tt.path, func(c *gin.Context) {
				c.String(tt.status, "body")
			})

			serve(router, httptest.NewRequest(http.MethodGet, tt.path+"?q=go", nil))

			entries := logs.FilterMessage("request completed").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, "q=go", fields["query"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}

func TestAccessLog_QuietPathsHiddenAboveDebug(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(AccessLog(zap.New(core)))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Zero(t, logs.Len())
}

func TestAccessLogWithConfig_NilLogger(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(AccessLogWithConfig(LoggingConfig{}))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
