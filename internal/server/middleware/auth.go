package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/psyjobs/jobspy-api/internal/auth/apikey"
)

// AuthConfig holds configuration for the API key middleware.
type AuthConfig struct {
	Authenticator *apikey.Authenticator
	Logger        *zap.Logger
	ErrorHandler  ErrorHandler
}

// Auth returns a middleware that enforces the API key policy.
func Auth(config AuthConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultErrorHandler
	}
	if config.Authenticator == nil || !config.Authenticator.Required() {
		return func(c *gin.Context) { c.Next() }
	}

	extractor := apikey.NewHeaderExtractor(config.Authenticator.HeaderName())

	return func(c *gin.Context) {
		err := config.Authenticator.Authenticate(c.Request.Context(), extractor.Extract(c.Request))
		if err != nil {
			config.Logger.Debug("request rejected by API key policy",
				zap.String("request_id", GetRequestID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			config.ErrorHandler(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
