package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psyjobs/jobspy-api/internal/auth/apikey"
)

// ErrorHandler writes the response for a request rejected by a middleware
// and must abort the chain.
type ErrorHandler func(c *gin.Context, err error)

// LimitExceededError rejects a request over the rate limit.
type LimitExceededError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

// Error implements error.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %d seconds.", e.Limit, int(e.Window.Seconds()))
}

// StatusCode returns the HTTP status for an error raised by this package.
func StatusCode(err error) int {
	var limited *LimitExceededError
	switch {
	case errors.As(err, &limited):
		return http.StatusTooManyRequests
	case errors.Is(err, apikey.ErrMissingCredential), errors.Is(err, apikey.ErrInvalidCredential):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func defaultErrorHandler(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusCode(err), gin.H{
		"error":   http.StatusText(StatusCode(err)),
		"message": err.Error(),
	})
}
