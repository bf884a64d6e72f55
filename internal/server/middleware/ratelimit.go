package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/psyjobs/jobspy-api/internal/ratelimit"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// Limiter is the rate limiter to use.
	Limiter ratelimit.Limiter

	// KeyFunc extracts the rate limit key from the request.
	KeyFunc ratelimit.KeyFunc

	// Logger for logging rate limit events.
	Logger *zap.Logger

	// ErrorHandler is called with a *LimitExceededError when the limit is exceeded.
	ErrorHandler ErrorHandler
}

// RateLimit returns a middleware that applies the sliding window limit.
// A noop limiter attaches no headers.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	if config.Limiter == nil || ratelimit.IsNoop(config.Limiter) {
		return func(c *gin.Context) { c.Next() }
	}
	if config.KeyFunc == nil {
		config.KeyFunc = ratelimit.IPKeyFunc
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultErrorHandler
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c.Request)

		result, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open.
			config.Logger.Error("rate limit check failed",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header(HeaderLimit, strconv.Itoa(result.Limit))
		c.Header(HeaderRemaining, strconv.Itoa(result.Remaining))

		if !result.Allowed {
			wait := ceilSeconds(result.RetryAfter)
			c.Header(HeaderRemaining, "0")
			c.Header(HeaderReset, strconv.Itoa(wait))
			c.Header(HeaderRetryAfter, strconv.Itoa(wait))

			config.Logger.Info("rate limit exceeded",
				zap.String("request_id", GetRequestID(c)),
				zap.Int("limit", result.Limit),
				zap.Duration("retry_after", result.RetryAfter),
			)

			config.ErrorHandler(c, &LimitExceededError{
				Limit:      result.Limit,
				Window:     result.Window,
				RetryAfter: result.RetryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ceilSeconds rounds d up to whole seconds, at least one.
func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
