// Package health provides readiness checks and the diagnostic reports served
// by the health endpoints.
//
// A Checker runs named checks concurrently under one deadline. Critical
// failures make the service unready; non-critical failures only degrade it.
//
//	checker := health.NewChecker(version, logger)
//	checker.AddCheck(health.PingCheck("cache", resultCache))
//	checker.AddCheck(health.NewDependencyCheck("scraper", breaker.Check, health.WithCritical(false)))
//
//	engine.GET("/ready", checker.ReadinessHandler())
package health
