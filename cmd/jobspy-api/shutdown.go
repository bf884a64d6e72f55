package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/psyjobs/jobspy-api/internal/cache"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// run starts every listener and blocks until a shutdown signal arrives or
// the API server fails.
func run(app *application, logger observability.Logger) {
	ctx := context.Background()

	if app.janitor != nil {
		if err := app.janitor.Start(); err != nil {
			logger.Fatal("failed to start housekeeping", observability.Error(err))
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(ctx)
	}()

	app.serveMetrics(logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", observability.Error(err))
		}
	}

	shutdown(app, logger)
}

// shutdown drains the API server, then releases the remaining resources.
func shutdown(app *application, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.janitor != nil {
		app.janitor.Stop(shutdownCtx)
	}

	// Redis entries are shared with other replicas and outlive this process.
	if app.results != nil && app.results.Backend() == cache.BackendMemory {
		if err := app.results.Clear(shutdownCtx); err != nil {
			logger.Warn("failed to clear result cache", observability.Error(err))
		}
	}

	app.release(logger)

	logger.Info("jobspy-api stopped")
}
