// Package server provides the public HTTP server of the search API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/psyjobs/jobspy-api/internal/auth/apikey"
	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/health"
	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/ratelimit"
	"github.com/psyjobs/jobspy-api/internal/search"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid races.
var ginModeOnce sync.Once

// MaxRequestBodySize bounds POST bodies.
const MaxRequestBodySize = 1 << 20

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, raw *search.RawRequest) (*search.Outcome, error)
}

// Deps are the components the server routes requests to.
type Deps struct {
	Config   *config.Config
	Searcher Searcher
	Auth     *apikey.Authenticator
	// Limiter may be nil when rate limiting is disabled.
	Limiter ratelimit.Limiter
	Health  *health.Checker
	Metrics *observability.Metrics
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
	// BreakerState reports the scraper circuit breaker state. Optional.
	BreakerState func() string
	Logger       observability.Logger
}

// Server is the public HTTP server.
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	cfg          *config.Config
	searcher     Searcher
	auth         *apikey.Authenticator
	limiter      ratelimit.Limiter
	health       *health.Checker
	metrics      *observability.Metrics
	tracer       trace.TracerProvider
	breakerState func() string
	logger       observability.Logger
	clientIP     *ratelimit.ClientIPResolver

	mu      sync.RWMutex
	running bool
}

// New builds the server and registers every route.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("server: searcher is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("server: authenticator is required")
	}

	ginModeOnce.Do(func() {
		if gin.Mode() == gin.DebugMode {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	s := &Server{
		engine:       gin.New(),
		cfg:          deps.Config,
		searcher:     deps.Searcher,
		auth:         deps.Auth,
		limiter:      deps.Limiter,
		health:       deps.Health,
		metrics:      deps.Metrics,
		tracer:       deps.TracerProvider,
		breakerState: deps.BreakerState,
		logger:       deps.Logger,
	}
	if s.logger == nil {
		s.logger = observability.NopLogger()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewNoopLimiter()
	}
	if s.health == nil {
		s.health = health.NewChecker("dev", s.logger)
	}

	trusted := deps.Config.Server.TrustedProxies
	resolver, err := ratelimit.NewClientIPResolver(trusted)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	s.clientIP = resolver
	if err := s.engine.SetTrustedProxies(trusted); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s.engine.HandleMethodNotAllowed = true
	s.engine.ContextWithFallback = true
	s.routes()
	return s, nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address until Stop is called.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := s.cfg.Server.Address()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.running = true
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
		observability.Duration("read_timeout", s.cfg.Server.ReadTimeout),
		observability.Duration("write_timeout", s.cfg.Server.WriteTimeout),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// limitBody wraps POST bodies in http.MaxBytesReader.
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
