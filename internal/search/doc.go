// Package search turns a client's job search into canonical parameters and
// runs it against the result cache and the external scraper.
//
// The flow for one request is Validate, Defaults.Apply, Fingerprint, a cache
// lookup and, on a miss, a scrape on the worker Pool whose result is stored
// before filters and sorting are applied.
package search
