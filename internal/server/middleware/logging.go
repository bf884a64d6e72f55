// Package middleware provides the gin middleware chain of the search API.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/psyjobs/jobspy-api/internal/observability"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for request ID.
	RequestIDKey = "requestID"
)

// DefaultQuietPaths are probe endpoints logged only at debug level.
var DefaultQuietPaths = []string{"/health", "/ping", "/ready", "/metrics"}

// LoggingConfig holds configuration for the access log middleware.
type LoggingConfig struct {
	Logger *zap.Logger
	// QuietPaths are logged at debug level regardless of status.
	QuietPaths []string
}

// RequestID keeps a caller supplied X-Request-ID or mints a UUID, echoes it
// on the response and stores it for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		ctx := observability.ContextWithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// AccessLog writes one entry per request, quieting the probe endpoints.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return AccessLogWithConfig(LoggingConfig{Logger: logger, QuietPaths: DefaultQuietPaths})
}

// AccessLogWithConfig writes one entry per request once the chain returns.
// Server faults log at error, rejections at warn.
func AccessLogWithConfig(cfg LoggingConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	quiet := make(map[string]struct{}, len(cfg.QuietPaths))
	for _, p := range cfg.QuietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		path := c.Request.URL.Path
		status := c.Writer.Status()

		level := zapcore.InfoLevel
		if _, ok := quiet[path]; ok {
			level = zapcore.DebugLevel
		} else if status >= 500 {
			level = zapcore.ErrorLevel
		} else if status >= 400 {
			level = zapcore.WarnLevel
		}

		ce := logger.Check(level, "request completed")
		if ce == nil {
			return
		}
		ce.Write(accessFields(c, path, status, time.Since(began))...)
	}
}

func accessFields(c *gin.Context, path string, status int, took time.Duration) []zap.Field {
	r := c.Request
	fields := make([]zap.Field, 0, 10)
	fields = append(fields,
		zap.String("request_id", GetRequestID(c)),
		zap.String("method", r.Method),
		zap.String("path", path),
		zap.String("query", r.URL.RawQuery),
		zap.Int("status", status),
		zap.Duration("latency", took),
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_agent", r.UserAgent()),
		zap.Int("body_size", c.Writer.Size()),
	)
	if errs := c.Errors.String(); errs != "" {
		fields = append(fields, zap.String("errors", errs))
	}
	return fields
}
