package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Sites lists every supported job board in documentation order.
var Sites = []string{"indeed", "linkedin", "zip_recruiter", "glassdoor", "google", "bayt", "naukri"}

// SiteAll expands to every entry of Sites.
const SiteAll = "all"

// Enumerated parameter values.
var (
	JobTypes           = []string{"fulltime", "parttime", "internship", "contract"}
	DescriptionFormats = []string{"markdown", "html"}
	VerboseLevels      = []int{0, 1, 2}
	Formats            = []string{FormatJSON, FormatCSV}
	SortOrders         = []string{"asc", "desc"}
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Page size bounds.
const (
	MinPageSize = 1
	MaxPageSize = 100
)

// maxSuggestionDistance bounds the edit distance of did_you_mean hints.
const maxSuggestionDistance = 3

// countries is the set accepted by country_indeed, spelled exactly as the
// scraper expects.
var countries = []string{
	"Argentina", "Australia", "Austria", "Bahrain", "Belgium", "Brazil", "Canada", "Chile", "China", "Colombia",
	"Costa Rica", "Czech Republic", "Denmark", "Ecuador", "Egypt", "Finland", "France", "Germany", "Greece",
	"Hong Kong", "Hungary", "India", "Indonesia", "Ireland", "Israel", "Italy", "Japan", "Kuwait", "Luxembourg",
	"Malaysia", "Mexico", "Morocco", "Netherlands", "New Zealand", "Nigeria", "Norway", "Oman", "Pakistan",
	"Panama", "Peru", "Philippines", "Poland", "Portugal", "Qatar", "Romania", "Saudi Arabia", "Singapore",
	"South Africa", "South Korea", "Spain", "Sweden", "Switzerland", "Taiwan", "Thailand", "Turkey", "Ukraine",
	"United Arab Emirates", "UK", "USA", "Uruguay", "Venezuela", "Vietnam",
}

var countrySet = func() map[string]bool {
	m := make(map[string]bool, len(countries))
	for _, c := range countries {
		m[c] = true
	}
	return m
}()

// Countries returns the supported country_indeed values, sorted.
func Countries() []string {
	out := append([]string(nil), countries...)
	sort.Strings(out)
	return out
}

// IsCountry reports whether name is a supported country, spelled exactly.
func IsCountry(name string) bool {
	return countrySet[name]
}

// closest returns the candidate nearest to value: an exact case-folded match
// first, then the smallest Levenshtein distance within the bound.
func closest(value string, candidates []string) string {
	// A Caser is stateful and must not be shared between goroutines.
	folder := cases.Fold()
	folded := folder.String(value)
	for _, c := range candidates {
		if folder.String(c) == folded {
			return c
		}
	}

	best, bestDist := "", maxSuggestionDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(folded, folder.String(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

var parameterTypes = map[string]string{
	"site_name":                  "string or list",
	"search_term":                "string",
	"google_search_term":         "string",
	"location":                   "string",
	"distance":                   "integer",
	"job_type":                   "string",
	"is_remote":                  "boolean",
	"results_wanted":             "integer",
	"hours_old":                  "integer",
	"linkedin_fetch_description": "boolean",
	"linkedin_company_ids":       "list of integers",
	"country_indeed":             "string",
	"enforce_annual_salary":      "boolean",
	"description_format":         "string",
	"offset":                     "integer",
	"easy_apply":                 "boolean",
	"verbose":                    "integer",
	"page":                       "integer",
	"page_size":                  "integer",
	"paginate":                   "boolean",
	"format":                     "string",
	"min_salary":                 "number",
	"max_salary":                 "number",
	"sort_order":                 "string",
}

var parameterDescriptions = map[string]string{
	"site_name":                  "Job sites to search on (e.g., indeed, linkedin)",
	"search_term":                "Job search term (e.g., 'software engineer')",
	"google_search_term":         "Search term for Google jobs",
	"location":                   "Job location (e.g., 'San Francisco, CA')",
	"distance":                   "Distance in miles (default: 50)",
	"job_type":                   "Type of job (e.g., fulltime, parttime)",
	"is_remote":                  "Whether to include remote jobs (true or false)",
	"results_wanted":             "Number of job results per site",
	"hours_old":                  "Filter jobs by hours since posting",
	"linkedin_fetch_description": "Fetch full LinkedIn descriptions",
	"linkedin_company_ids":       "LinkedIn company IDs to filter by",
	"country_indeed":             "Country filter for Indeed & Glassdoor",
	"enforce_annual_salary":      "Convert wages to annual salary",
	"description_format":         "Format of job description (markdown, html)",
	"offset":                     "Offset for pagination",
	"easy_apply":                 "Filter for easy apply jobs",
	"verbose":                    "Controls verbosity (0: errors only, 1: errors+warnings, 2: all logs)",
	"page":                       "Page number for paginated results",
	"page_size":                  "Number of results per page",
	"paginate":                   "Enable pagination",
	"format":                     "Response format (json, csv)",
	"min_salary":                 "Minimum salary of returned jobs",
	"max_salary":                 "Maximum salary of returned jobs",
	"sort_order":                 "Sort direction (asc, desc)",
}

var parameterLimitations = map[string]string{
	"hours_old":  "Cannot be used with job_type, is_remote, or easy_apply for Indeed searches",
	"easy_apply": "Cannot be used with hours_old for LinkedIn and Indeed searches",
	"job_type":   "Cannot be used with hours_old for Indeed searches when combined with is_remote",
	"page_size":  "Must be between 1 and 100",
}

func validValues(param string) []any {
	switch param {
	case "site_name":
		return anySlice(Sites)
	case "job_type":
		return anySlice(JobTypes)
	case "description_format":
		return anySlice(DescriptionFormats)
	case "format":
		return anySlice(Formats)
	case "sort_order":
		return anySlice(SortOrders)
	case "verbose":
		out := make([]any, len(VerboseLevels))
		for i, v := range VerboseLevels {
			out[i] = v
		}
		return out
	case "paginate":
		return []any{true, false}
	default:
		return nil
	}
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Suggestion explains one rejected parameter.
type Suggestion struct {
	Parameter    string `json:"parameter"`
	Message      string `json:"message"`
	ExpectedType string `json:"expected_type,omitempty"`
	Description  string `json:"description,omitempty"`
	ValidValues  []any  `json:"valid_values,omitempty"`
	Limitation   string `json:"limitation,omitempty"`
	Suggestion   string `json:"suggestion,omitempty"`
	DidYouMean   string `json:"did_you_mean,omitempty"`
}

// SuggestionFor builds the catalog entry for param with the rejected value.
func SuggestionFor(param, value string) Suggestion {
	s := Suggestion{
		Parameter:    param,
		Message:      "Invalid value for " + param,
		ExpectedType: parameterTypes[param],
		Description:  parameterDescriptions[param],
		ValidValues:  validValues(param),
		Limitation:   parameterLimitations[param],
	}

	switch param {
	case "site_name":
		s.Message = fmt.Sprintf("'%s' is not a valid job site", value)
		s.Suggestion = "Use one or more of the valid job sites: " + strings.Join(Sites, ", ")
		s.DidYouMean = closest(value, Sites)
	case "job_type":
		s.Message = fmt.Sprintf("'%s' is not a valid job type", value)
		s.Suggestion = "Use one of: " + strings.Join(JobTypes, ", ")
		s.DidYouMean = closest(value, JobTypes)
	case "description_format":
		s.Message = fmt.Sprintf("'%s' is not a valid description format", value)
		s.Suggestion = "Use one of: " + strings.Join(DescriptionFormats, ", ")
	case "verbose":
		s.Message = fmt.Sprintf("'%s' is not a valid verbosity level", value)
		levels := make([]string, len(VerboseLevels))
		for i, v := range VerboseLevels {
			levels[i] = strconv.Itoa(v)
		}
		s.Suggestion = "Use one of: " + strings.Join(levels, ", ")
	case "page_size":
		s.Message = fmt.Sprintf("'%s' is not a valid page size", value)
		s.Suggestion = "Page size must be between 1 and 100"
	case "paginate":
		s.Message = fmt.Sprintf("'%s' is not a valid value for paginate", value)
		s.Suggestion = "Use true or false"
	case "page":
		s.Message = fmt.Sprintf("'%s' is not a valid page number", value)
		s.Suggestion = "Page numbers start at 1"
	case "format":
		s.Message = fmt.Sprintf("'%s' is not a valid response format", value)
		s.Suggestion = "Use one of: " + strings.Join(Formats, ", ")
	case "sort_order":
		s.Message = fmt.Sprintf("'%s' is not a valid sort order", value)
		s.Suggestion = "Use one of: " + strings.Join(SortOrders, ", ")
	}
	return s
}

// coercionSuggestion reports a value that does not parse as the expected type.
func coercionSuggestion(param, value string) Suggestion {
	s := SuggestionFor(param, value)
	if s.Message == "Invalid value for "+param && s.ExpectedType != "" {
		s.Message = fmt.Sprintf("'%s' is not a valid %s", value, s.ExpectedType)
	}
	return s
}
