package main

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

const defaultMetricsPath = "/metrics"

// newMetricsServer exposes the registry on its own port. Scrapes never pass
// through the API middleware chain, so they are neither authenticated nor
// rate limited.
func newMetricsServer(host string, cfg config.MetricsConfig, metrics *observability.Metrics) *http.Server {
	path := cfg.Path
	if path == "" {
		path = defaultMetricsPath
	}

	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	return &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(cfg.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

// serveMetrics starts the metrics listener in the background when enabled.
// Listener failures are logged; they never take the API down.
func (app *application) serveMetrics(logger observability.Logger) {
	cfg := app.config.Metrics
	if !cfg.Enabled {
		return
	}

	srv := newMetricsServer(app.config.Server.Host, cfg, app.metrics)
	app.metricsServer = srv
	logger.Info("metrics listener started", observability.String("address", srv.Addr))

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", observability.Error(err))
		}
	}()
}
