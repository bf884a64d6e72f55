// Package observability provides logging, metrics, and tracing
// for the job search gateway.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("search completed",
//	    observability.Int("count", 25),
//	    observability.Bool("cached", true),
//	)
//
// Components that log through zap directly (gin middleware, the rate
// limiter) obtain the underlying logger with ZapLogger.
//
// # Metrics
//
// Metrics owns a private Prometheus registry. Component collectors are
// added with Register so that a single /metrics endpoint exposes them all.
//
// # Tracing
//
// Tracer exports spans over OTLP/gRPC when enabled and degrades to no-op
// spans otherwise, so call sites never branch on configuration.
package observability
