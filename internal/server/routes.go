package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/ratelimit"
	"github.com/psyjobs/jobspy-api/internal/server/middleware"
)

// Route paths.
const (
	APIRoot    = "/api/v1"
	SearchPath = APIRoot + "/search_jobs"
	DocsPath   = "/docs"
)

func (s *Server) routes() {
	zl := observability.ZapLogger(s.logger)
	r := s.engine

	r.Use(
		middleware.RecoveryWithConfig(middleware.RecoveryConfig{
			Logger:  zl,
			Respond: recoverPanic,
		}),
		middleware.RequestID(),
		middleware.AccessLog(zl),
		middleware.BodyLog(middleware.BodyLogConfig{Logger: zl}),
		middleware.Tracing(s.tracer),
		middleware.Metrics(s.metrics),
		middleware.CORS(s.cfg.CORS.Origins),
		middleware.ProcessTime(),
	)

	r.GET("/", s.handleRoot)

	api := r.Group(APIRoot,
		limitBody(MaxRequestBodySize),
		middleware.Auth(middleware.AuthConfig{
			Authenticator: s.auth,
			Logger:        zl,
			ErrorHandler:  s.fail,
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      s.limiter,
			KeyFunc:      ratelimit.HeaderKeyFunc(s.auth.HeaderName(), s.clientIP.ClientIP),
			Logger:       zl,
			ErrorHandler: s.fail,
		}),
	)
	api.GET("/search_jobs", s.handleSearchQuery)
	api.POST("/search_jobs", s.handleSearchBody)

	diag := r.Group("", s.requireHealthEndpoints)
	diag.GET("/health", s.handleHealth)
	diag.GET("/ping", s.health.LivenessHandler())
	diag.GET("/ready", s.health.ReadinessHandler())
	diag.GET("/auth-status", s.handleAuthStatus)
	diag.GET("/api-config", s.handleAPIConfig)
	diag.GET("/config-sources", s.handleConfigSources)

	r.NoRoute(func(c *gin.Context) {
		abortRequest(c, http.StatusNotFound, MessageNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		abortRequest(c, http.StatusMethodNotAllowed, MessageMethodNotAllowed)
	})
}

// requireHealthEndpoints hides the diagnostic routes when they are disabled.
func (s *Server) requireHealthEndpoints(c *gin.Context) {
	if !s.cfg.Health.Enabled {
		abortRequest(c, http.StatusNotFound, MessageHealthDisabled)
		return
	}
	c.Next()
}
