package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/psyjobs/jobspy-api/internal/auth/apikey"
	"github.com/psyjobs/jobspy-api/internal/cache"
	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/health"
	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/ratelimit"
	"github.com/psyjobs/jobspy-api/internal/scraper"
	"github.com/psyjobs/jobspy-api/internal/search"
	"github.com/psyjobs/jobspy-api/internal/server"
)

const (
	metricsNamespace = "jobspy"
	serviceName      = "jobspy-api"

	// healthCacheTTL bounds how often readiness probes reach dependencies.
	healthCacheTTL = 5 * time.Second
)

// application holds all application components.
type application struct {
	config        *config.Config
	server        *server.Server
	metricsServer *http.Server
	healthChecker *health.Checker
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	redisClient   redis.UniversalClient
	cache         cache.Cache
	results       *cache.ResultCache
	limiter       ratelimit.Limiter
	janitor       *ratelimit.Janitor
}

// componentMetrics are the per-package collectors registered next to the
// HTTP metrics.
type componentMetrics struct {
	auth      *apikey.Metrics
	cache     *cache.Metrics
	rateLimit *ratelimit.Metrics
	scraper   *scraper.Metrics
	search    *search.Metrics
	health    *health.Metrics
}

func newComponentMetrics(m *observability.Metrics) (*componentMetrics, error) {
	ns := m.Namespace()
	cm := &componentMetrics{
		auth:      apikey.NewMetrics(ns),
		cache:     cache.NewMetrics(ns),
		rateLimit: ratelimit.NewMetrics(ns),
		scraper:   scraper.NewMetrics(ns),
		search:    search.NewMetrics(ns),
		health:    health.NewMetrics(ns),
	}

	groups := [][]prometheus.Collector{
		cm.auth.Collectors(),
		cm.cache.Collectors(),
		cm.rateLimit.Collectors(),
		cm.scraper.Collectors(),
		cm.search.Collectors(),
		cm.health.Collectors(),
	}
	for _, g := range groups {
		if err := m.Register(g...); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return cm, nil
}

// initApplication wires every component. Partially built resources are
// released when a later step fails.
func initApplication(cfg *config.Config, logger observability.Logger) (app *application, err error) {
	app = &application{config: cfg}
	defer func() {
		if err != nil {
			app.release(logger)
			app = nil
		}
	}()

	app.metrics = observability.NewMetrics(metricsNamespace)
	app.metrics.SetBuildInfo(version, gitCommit, buildTime)
	cm, err := newComponentMetrics(app.metrics)
	if err != nil {
		return app, err
	}

	app.tracer, err = observability.NewTracer(observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return app, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	if needsRedis(cfg) {
		app.redisClient, err = newRedisClient(cfg.Redis)
		if err != nil {
			return app, err
		}
	}

	if err := app.initStorage(cfg, cm, logger); err != nil {
		return app, err
	}

	auth, err := apikey.New(cfg.Auth, apikey.WithLogger(logger), apikey.WithMetrics(cm.auth))
	if err != nil {
		return app, fmt.Errorf("failed to initialize authentication: %w", err)
	}

	scraperClient, err := scraper.NewHTTPClient(cfg.Scraper,
		scraper.WithLogger(logger),
		scraper.WithMetrics(cm.scraper),
	)
	if err != nil {
		return app, fmt.Errorf("failed to initialize scraper client: %w", err)
	}

	var store search.ResultStore
	if app.results.Enabled() {
		store = app.results
	}
	orchestrator := search.NewOrchestrator(scraperClient, store, search.NewDefaults(cfg.Defaults),
		search.WithLogger(logger),
		search.WithMetrics(cm.search),
		search.WithPool(search.NewPool(cfg.Scraper.Workers, cfg.Scraper.Deduplicate, cm.search)),
	)

	app.healthChecker = health.NewChecker(version, logger, health.WithMetrics(cm.health))
	app.registerHealthChecks(scraperClient)

	app.server, err = server.New(server.Deps{
		Config:         cfg,
		Searcher:       orchestrator,
		Auth:           auth,
		Limiter:        app.limiter,
		Health:         app.healthChecker,
		Metrics:        app.metrics,
		TracerProvider: app.tracer.Provider(),
		BreakerState:   scraperClient.BreakerState,
		Logger:         logger,
	})
	if err != nil {
		return app, fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("application initialized",
		observability.Bool("auth_required", auth.Required()),
		observability.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		observability.String("rate_limit_store", cfg.RateLimit.Store),
		observability.String("cache_backend", app.results.Backend()),
		observability.Int("scraper_workers", cfg.Scraper.Workers),
		observability.Bool("tracing_enabled", app.tracer.Enabled()),
	)
	return app, nil
}

// initStorage builds the result cache, the rate limiter and the janitor
// that sweeps both.
func (app *application) initStorage(cfg *config.Config, cm *componentMetrics, logger observability.Logger) error {
	var opts []cache.Option
	opts = append(opts, cache.WithMetrics(cm.cache))
	if app.redisClient != nil {
		opts = append(opts, cache.WithRedisClient(app.redisClient))
	}

	var err error
	app.cache, err = cache.New(cfg.Cache, cfg.Redis, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.results = cache.NewResultCache(app.cache, cfg.Cache.TTL, logger)

	zl := observability.ZapLogger(logger)
	app.limiter, err = ratelimit.New(cfg.RateLimit, app.redisClient, cfg.Redis.KeyPrefix, cm.rateLimit, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	var tasks []ratelimit.Task
	if sw, ok := app.limiter.(*ratelimit.SlidingWindowLimiter); ok {
		tasks = append(tasks, ratelimit.Task{Name: "rate_limit_windows", Run: sw.SweepNow})
	}
	if app.results.Enabled() && app.results.Backend() == cache.BackendMemory {
		tasks = append(tasks, ratelimit.Task{Name: "result_cache", Run: app.results.DeleteExpired})
	}
	if len(tasks) > 0 {
		app.janitor = ratelimit.NewJanitor(cfg.RateLimit.CleanupSchedule, zl, tasks...)
	}
	return nil
}

// registerHealthChecks adds a readiness check per external dependency.
func (app *application) registerHealthChecks(scraperClient *scraper.HTTPClient) {
	if app.results.Backend() == cache.BackendRedis {
		app.healthChecker.AddCheck(health.NewCachedHealthCheck(
			health.PingCheck("cache", app.results), healthCacheTTL))
	}
	if rl, ok := app.limiter.(*ratelimit.RedisLimiter); ok {
		app.healthChecker.AddCheck(health.NewCachedHealthCheck(
			health.PingCheck("rate_limit_store", rl), healthCacheTTL))
	}
	app.healthChecker.AddCheck(health.NewDependencyCheck("scraper", scraperClient.Check,
		health.WithCritical(false)))
}

// needsRedis reports whether any component is configured for the redis backend.
func needsRedis(cfg *config.Config) bool {
	return (cfg.Cache.Enabled && cfg.Cache.Type == config.BackendRedis) ||
		(cfg.RateLimit.Enabled && cfg.RateLimit.Store == config.BackendRedis)
}

// newRedisClient dials REDIS_URL once for both the cache and the limiter.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// release closes whatever has been created so far.
func (app *application) release(logger observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			logger.Error("failed to close cache", observability.Error(err))
		}
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", observability.Error(err))
		}
	}
	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
