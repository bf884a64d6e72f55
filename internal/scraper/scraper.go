package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/psyjobs/jobspy-api/internal/jobs"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("scraper circuit breaker is open")

// Request is the canonical search handed to the scraping service. Field
// names follow the scraper's keyword arguments.
type Request struct {
	SiteName                 []string `json:"site_name"`
	SearchTerm               string   `json:"search_term,omitempty"`
	GoogleSearchTerm         string   `json:"google_search_term,omitempty"`
	Location                 string   `json:"location,omitempty"`
	Distance                 int      `json:"distance"`
	JobType                  string   `json:"job_type,omitempty"`
	Proxies                  []string `json:"proxies,omitempty"`
	IsRemote                 *bool    `json:"is_remote,omitempty"`
	ResultsWanted            int      `json:"results_wanted"`
	HoursOld                 *int     `json:"hours_old,omitempty"`
	EasyApply                *bool    `json:"easy_apply,omitempty"`
	DescriptionFormat        string   `json:"description_format"`
	Offset                   int      `json:"offset"`
	Verbose                  int      `json:"verbose"`
	LinkedinFetchDescription bool     `json:"linkedin_fetch_description"`
	LinkedinCompanyIDs       []int    `json:"linkedin_company_ids,omitempty"`
	CountryIndeed            string   `json:"country_indeed,omitempty"`
	EnforceAnnualSalary      bool     `json:"enforce_annual_salary"`
	CACert                   string   `json:"ca_cert,omitempty"`
}

// Scraper runs one search synchronously.
type Scraper interface {
	Scrape(ctx context.Context, req Request) (*jobs.Table, error)
}

// Func adapts a function to Scraper.
type Func func(ctx context.Context, req Request) (*jobs.Table, error)

// Scrape implements Scraper.
func (f Func) Scrape(ctx context.Context, req Request) (*jobs.Table, error) {
	return f(ctx, req)
}

// Error is a failure reported by the scraping service.
type Error struct {
	// StatusCode is the upstream HTTP status, 0 for transport failures.
	StatusCode int
	// Message is the upstream explanation shown to clients.
	Message string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("scraper returned status %d", e.StatusCode)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// clientFault reports upstream 4xx answers, which say nothing about the
// health of the service.
func (e *Error) clientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
