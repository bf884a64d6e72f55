package search

import (
	"errors"
	"strings"
)

// Validation error titles.
const (
	TitleMissingParameter = "Missing required parameter"
	TitleInvalidCountry   = "Invalid country_indeed value"
	TitleIndeedConflict   = "Parameter conflict for Indeed"
	TitleLinkedInConflict = "Parameter conflict for LinkedIn"
	TitleInvalidParams    = "Invalid parameter(s)"
)

// ValidationError rejects a request before any scraping. Its fields are the
// client-facing payload.
type ValidationError struct {
	Title                 string       `json:"error"`
	Parameter             string       `json:"parameter,omitempty"`
	InvalidValue          string       `json:"invalid_value,omitempty"`
	ValidCountries        []string     `json:"valid_countries,omitempty"`
	ConflictingParameters []string     `json:"conflicting_parameters,omitempty"`
	Message               string       `json:"message,omitempty"`
	Suggestion            string       `json:"suggestion,omitempty"`
	DidYouMean            string       `json:"did_you_mean,omitempty"`
	Suggestions           []Suggestion `json:"suggestions,omitempty"`
}

// Error implements error.
func (e *ValidationError) Error() string {
	switch {
	case e.Message != "":
		return e.Title + ": " + e.Message
	case len(e.Suggestions) > 0:
		params := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			params[i] = s.Parameter
		}
		return e.Title + ": " + strings.Join(params, ", ")
	default:
		return e.Title
	}
}

// ScrapeErrorTitle heads every scrape failure payload.
const ScrapeErrorTitle = "Error scraping jobs"

// ScrapeError wraps a failure of the external scraper with advice for the
// client.
type ScrapeError struct {
	Err  error
	Hint string
}

// Error implements error.
func (e *ScrapeError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the scraper's error.
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// ScrapeFailure is the client payload of a ScrapeError.
type ScrapeFailure struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// Payload returns the client-facing description.
func (e *ScrapeError) Payload() ScrapeFailure {
	return ScrapeFailure{Error: ScrapeErrorTitle, Message: e.Err.Error(), Suggestion: e.Hint}
}

// Failure hints.
const (
	HintProxy   = "Check your proxy configuration or try without a proxy"
	HintTimeout = "The request timed out. Try reducing the number of job sites or results_wanted"
	HintCaptcha = "A CAPTCHA was encountered. Try using a different proxy or reduce request frequency"
	HintDefault = "Try simplifying your search or using fewer job sites"
)

var hintRules = []struct {
	substr string
	hint   string
}{
	{"proxy", HintProxy},
	{"timeout", HintTimeout},
	{"captcha", HintCaptcha},
}

// Hint maps a scraper failure to advice by case-insensitive substring. The
// first matching rule wins.
func Hint(err error) string {
	if err == nil {
		return HintDefault
	}
	msg := strings.ToLower(err.Error())
	for _, r := range hintRules {
		if strings.Contains(msg, r.substr) {
			return r.hint
		}
	}
	return HintDefault
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
