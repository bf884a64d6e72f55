package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// PanicResponder writes the response for a recovered panic.
type PanicResponder func(c *gin.Context, recovered any)

// RecoveryConfig configures Recovery.
type RecoveryConfig struct {
	Logger *zap.Logger
	// OmitStack leaves the goroutine stack out of the log entry.
	OmitStack bool
	Respond   PanicResponder
}

// Recovery turns handler panics into a logged 500.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return RecoveryWithConfig(RecoveryConfig{Logger: logger})
}

// RecoveryWithConfig is Recovery with a custom responder.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func RecoveryWithConfig(cfg RecoveryConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	respond := cfg.Respond
	if respond == nil {
		respond = respondServerError
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.Error("panic recovered", panicFields(c, rec, !cfg.OmitStack)...)

			if span := GetSpan(c); span != nil {
				span.RecordError(fmt.Errorf("panic: %v", rec))
				span.SetStatus(codes.Error, "panic")
			}

			respond(c, rec)
			c.Abort()
		}()

		c.Next()
	}
}

func panicFields(c *gin.Context, rec any, withStack bool) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	fields = append(fields,
		zap.Any("error", rec),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
	)
	if id := GetRequestID(c); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if withStack {
		fields = append(fields, zap.ByteString("stack", debug.Stack()))
	}
	return fields
}

func respondServerError(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "Server Error",
		"message": "An unexpected error occurred",
		"path":    c.Request.URL.Path,
	})
}
