package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/psyjobs/jobspy-api/internal/config"
)

// ErrInvalidBody is returned by BindJSON for a body that is not a JSON object.
var ErrInvalidBody = errors.New("Invalid request body")

// RawRequest is a search as the client sent it. A nil pointer means the
// parameter was not supplied at all.
type RawRequest struct {
	SiteName                 []string
	SearchTerm               *string
	GoogleSearchTerm         *string
	Location                 *string
	Distance                 *int
	JobType                  *string
	IsRemote                 *bool
	HoursOld                 *int
	EasyApply                *bool
	ResultsWanted            *int
	DescriptionFormat        *string
	Offset                   *int
	Verbose                  *int
	LinkedinFetchDescription *bool
	LinkedinCompanyIDs       []int
	CountryIndeed            *string
	EnforceAnnualSalary      *bool
	Proxies                  []string

	Paginate *bool
	Page     *int
	PageSize *int
	Format   *string

	MinSalary     *float64
	MaxSalary     *float64
	Company       *string
	JobTypeFilter *string
	City          *string
	State         *string
	TitleKeywords *string
	SortBy        *string
	SortOrder     *string

	// bindErrors holds values that could not be coerced to their type.
	bindErrors []Suggestion
}

// BindQuery reads a GET query string. site_name, proxies and
// linkedin_company_ids may be repeated or comma separated. Unknown keys are
// ignored.
func BindQuery(values url.Values) *RawRequest {
	r := &RawRequest{}
	for name, vals := range values {
		r.set(name, vals)
	}
	return r
}

// BindJSON reads a POST body. site_name may be a string or a list. Unknown
// fields are ignored; null means not supplied.
func BindJSON(body io.Reader) (*RawRequest, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return &RawRequest{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	r := &RawRequest{}
	for name, v := range fields {
		vals, ok := jsonValues(v)
		if !ok {
			if _, known := parameterTypes[name]; known {
				r.bindErrors = append(r.bindErrors, coercionSuggestion(name, compactJSON(v)))
			}
			continue
		}
		if vals != nil {
			r.set(name, vals)
		}
	}
	return r, nil
}

// jsonValues flattens a decoded JSON value into its string forms. Nested
// objects are rejected.
func jsonValues(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return []string{t}, true
	case bool:
		return []string{strconv.FormatBool(t)}, true
	case json.Number:
		return []string{t.String()}, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch iv := item.(type) {
			case string:
				out = append(out, iv)
			case json.Number:
				out = append(out, iv.String())
			case bool:
				out = append(out, strconv.FormatBool(iv))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(buf.String())
}

func (r *RawRequest) set(name string, vals []string) {
	switch name {
	case "site_name":
		r.SiteName = append(r.SiteName, config.SplitList(strings.Join(vals, ","))...)
	case "proxies":
		r.Proxies = append(r.Proxies, config.SplitList(strings.Join(vals, ","))...)
	case "linkedin_company_ids":
		r.LinkedinCompanyIDs = append(r.LinkedinCompanyIDs, r.intList(name, vals)...)
	case "search_term":
		r.SearchTerm = str(vals)
	case "google_search_term":
		r.GoogleSearchTerm = str(vals)
	case "location":
		r.Location = str(vals)
	case "job_type":
		r.JobType = str(vals)
	case "description_format":
		r.DescriptionFormat = str(vals)
	case "country_indeed":
		r.CountryIndeed = str(vals)
	case "format":
		r.Format = str(vals)
	case "company":
		r.Company = str(vals)
	case "job_type_filter":
		r.JobTypeFilter = str(vals)
	case "city":
		r.City = str(vals)
	case "state":
		r.State = str(vals)
	case "title_keywords":
		r.TitleKeywords = str(vals)
	case "sort_by":
		r.SortBy = str(vals)
	case "sort_order":
		r.SortOrder = str(vals)
	case "distance":
		r.Distance = r.integer(name, vals)
	case "hours_old":
		r.HoursOld = r.integer(name, vals)
	case "results_wanted":
		r.ResultsWanted = r.integer(name, vals)
	case "offset":
		r.Offset = r.integer(name, vals)
	case "verbose":
		r.Verbose = r.integer(name, vals)
	case "page":
		r.Page = r.integer(name, vals)
	case "page_size":
		r.PageSize = r.integer(name, vals)
	case "is_remote":
		r.IsRemote = r.boolean(name, vals)
	case "easy_apply":
		r.EasyApply = r.boolean(name, vals)
	case "linkedin_fetch_description":
		r.LinkedinFetchDescription = r.boolean(name, vals)
	case "enforce_annual_salary":
		r.EnforceAnnualSalary = r.boolean(name, vals)
	case "paginate":
		r.Paginate = r.boolean(name, vals)
	case "min_salary":
		r.MinSalary = r.number(name, vals)
	case "max_salary":
		r.MaxSalary = r.number(name, vals)
	}
}

// last picks the final value of a repeated scalar parameter.
func last(vals []string) (string, bool) {
	if len(vals) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vals[len(vals)-1])
	return v, v != ""
}

func str(vals []string) *string {
	v, ok := last(vals)
	if !ok {
		return nil
	}
	return &v
}

func (r *RawRequest) integer(name string, vals []string) *int {
	v, ok := last(vals)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.bindErrors = append(r.bindErrors, coercionSuggestion(name, v))
		return nil
	}
	return &n
}

func (r *RawRequest) boolean(name string, vals []string) *bool {
	v, ok := last(vals)
	if !ok {
		return nil
	}
	b, err := config.ParseBool(v)
	if err != nil {
		r.bindErrors = append(r.bindErrors, coercionSuggestion(name, v))
		return nil
	}
	return &b
}

func (r *RawRequest) number(name string, vals []string) *float64 {
	v, ok := last(vals)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.bindErrors = append(r.bindErrors, coercionSuggestion(name, v))
		return nil
	}
	return &f
}

func (r *RawRequest) intList(name string, vals []string) []int {
	var out []int
	for _, v := range config.SplitList(strings.Join(vals, ",")) {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.bindErrors = append(r.bindErrors, coercionSuggestion(name, v))
			continue
		}
		out = append(out, n)
	}
	return out
}
