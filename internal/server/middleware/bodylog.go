package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// MaskedValue replaces sensitive values in logged bodies.
	MaskedValue = "********"

	defaultMaxLoggedBody = 1000
	maxLoggedText        = 200
)

// SensitiveFields are matched as substrings of lower-cased JSON keys.
var SensitiveFields = []string{"password", "token", "api_key", "secret", "credit_card"}

// BodyLogConfig holds configuration for the request body logger.
type BodyLogConfig struct {
	Logger *zap.Logger
	// MaxBytes bounds the body size that is logged; larger bodies are noted only.
	MaxBytes int
}

// BodyLog logs POST and PUT bodies at debug level with sensitive fields
// masked. It does nothing unless the logger has debug enabled.
func BodyLog(config BodyLogConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = defaultMaxLoggedBody
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodPost && method != http.MethodPut) || c.Request.Body == nil ||
			!config.Logger.Core().Enabled(zap.DebugLevel) {
			c.Next()
			return
		}

		// Read one byte past the limit to detect oversized bodies.
		head, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(config.MaxBytes)+1))
		if err != nil {
			config.Logger.Warn("failed to log request body", zap.Error(err))
		}
		c.Request.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(head), c.Request.Body),
			Closer: c.Request.Body,
		}

		config.Logger.Debug("request body",
			zap.String("request_id", GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.String("body", describeBody(head, config.MaxBytes)),
		)

		c.Next()
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func describeBody(body []byte, limit int) string {
	if len(body) > limit {
		return "[too large to log]"
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err == nil {
		maskSensitive(doc)
		if masked, err := json.Marshal(doc); err == nil {
			return string(masked)
		}
	}

	text := strings.ToValidUTF8(string(body), "�")
	if len(text) > maxLoggedText {
		text = text[:maxLoggedText] + "..."
	}
	return text
}

// maskSensitive replaces, in place, every scalar value whose key contains
// a sensitive word. Nested objects are walked, also inside arrays.
func maskSensitive(v any) {
	switch doc := v.(type) {
	case map[string]any:
		for key, value := range doc {
			switch value.(type) {
			case map[string]any, []any:
				maskSensitive(value)
			default:
				if isSensitive(key) {
					doc[key] = MaskedValue
				}
			}
		}
	case []any:
		for _, item := range doc {
			maskSensitive(item)
		}
	}
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range SensitiveFields {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
