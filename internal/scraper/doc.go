// Package scraper defines the boundary to the external service that performs
// the per-site job scraping, and an HTTP client for it.
//
// The gateway never scrapes itself. It hands a canonical Request to a Scraper
// and receives a jobs.Table or an error. HTTPClient talks to a scraping
// service over JSON, guarded by a circuit breaker and optional pacing.
package scraper
