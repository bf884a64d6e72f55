package search

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/psyjobs/jobspy-api/internal/jobs"
)

// Presentation defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Pagination selects one window of the result.
type Pagination struct {
	Enabled  bool
	Page     int
	PageSize int
}

// Query is a request that passed validation. Search fields stay as the
// client sent them, normalized but not yet merged with defaults.
type Query struct {
	raw RawRequest

	// Sites is the explicit site list after lower-casing and "all"
	// expansion; nil when the client sent none.
	Sites []string

	Pagination Pagination
	Format     string
	Filter     jobs.Filter
	SortBy     string
	SortOrder  string
}

// Validate checks raw in a fixed order: country, Indeed conflicts, LinkedIn
// conflicts, then every remaining rule at once. The first failing stage
// returns a *ValidationError.
func Validate(raw *RawRequest) (*Query, error) {
	if raw == nil {
		raw = &RawRequest{}
	}
	sites := normalizeSites(raw.SiteName)

	if err := checkCountry(sites, raw.CountryIndeed); err != nil {
		return nil, err
	}
	if slices.Contains(sites, "indeed") {
		if err := checkIndeedGroups(raw); err != nil {
			return nil, err
		}
	}
	if slices.Contains(sites, "linkedin") && raw.HoursOld != nil && raw.EasyApply != nil {
		return nil, &ValidationError{
			Title:                 TitleLinkedInConflict,
			ConflictingParameters: []string{"hours_old", "easy_apply"},
			Message:               "LinkedIn searches only support one of the following at a time: hours_old or easy_apply.",
			Suggestion:            "Remove either hours_old or easy_apply from your search parameters.",
		}
	}

	if suggestions := collectSuggestions(raw, sites); len(suggestions) > 0 {
		return nil, &ValidationError{Title: TitleInvalidParams, Suggestions: suggestions}
	}

	return newQuery(raw, sites), nil
}

func normalizeSites(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if n == SiteAll {
			for _, s := range Sites {
				add(s)
			}
			continue
		}
		add(n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func checkCountry(sites []string, country *string) error {
	if !slices.Contains(sites, "indeed") && !slices.Contains(sites, "glassdoor") {
		return nil
	}
	if country == nil || strings.TrimSpace(*country) == "" {
		return &ValidationError{
			Title:      TitleMissingParameter,
			Parameter:  "country_indeed",
			Message:    "country_indeed is required when searching Indeed or Glassdoor.",
			Suggestion: "Specify a supported country using the country_indeed parameter. See documentation for valid values.",
		}
	}
	if !IsCountry(*country) {
		return &ValidationError{
			Title:          TitleInvalidCountry,
			InvalidValue:   *country,
			ValidCountries: Countries(),
			Suggestion:     "Use one of the supported country names exactly as listed in the documentation.",
			DidYouMean:     closest(*country, countries),
		}
	}
	return nil
}

// checkIndeedGroups allows at most one populated group. A supplied false
// still populates its group.
func checkIndeedGroups(raw *RawRequest) error {
	var populated []string
	if raw.HoursOld != nil {
		populated = append(populated, "hours_old")
	}
	if raw.JobType != nil || raw.IsRemote != nil {
		populated = append(populated, "job_type/is_remote")
	}
	if raw.EasyApply != nil {
		populated = append(populated, "easy_apply")
	}
	if len(populated) < 2 {
		return nil
	}
	return &ValidationError{
		Title:                 TitleIndeedConflict,
		ConflictingParameters: populated,
		Message:               "Indeed searches only support one of the following at a time: hours_old, (job_type & is_remote), or easy_apply.",
		Suggestion:            "Remove one or more of these parameters so that only one group is used per search. See documentation for details.",
	}
}

func collectSuggestions(raw *RawRequest, sites []string) []Suggestion {
	out := append([]Suggestion(nil), raw.bindErrors...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Parameter < out[j].Parameter })

	for _, s := range sites {
		if !slices.Contains(Sites, s) {
			out = append(out, SuggestionFor("site_name", s))
		}
	}
	if raw.JobType != nil && !slices.Contains(JobTypes, *raw.JobType) {
		out = append(out, SuggestionFor("job_type", *raw.JobType))
	}
	if raw.DescriptionFormat != nil && !slices.Contains(DescriptionFormats, *raw.DescriptionFormat) {
		out = append(out, SuggestionFor("description_format", *raw.DescriptionFormat))
	}
	if raw.Verbose != nil && !slices.Contains(VerboseLevels, *raw.Verbose) {
		out = append(out, SuggestionFor("verbose", strconv.Itoa(*raw.Verbose)))
	}
	if raw.Page != nil && *raw.Page < 1 {
		out = append(out, SuggestionFor("page", strconv.Itoa(*raw.Page)))
	}
	if raw.PageSize != nil && (*raw.PageSize < MinPageSize || *raw.PageSize > MaxPageSize) {
		out = append(out, SuggestionFor("page_size", strconv.Itoa(*raw.PageSize)))
	}
	if raw.Format != nil && !slices.Contains(Formats, strings.ToLower(*raw.Format)) {
		out = append(out, SuggestionFor("format", *raw.Format))
	}
	if raw.SortOrder != nil && !slices.Contains(SortOrders, strings.ToLower(*raw.SortOrder)) {
		out = append(out, SuggestionFor("sort_order", *raw.SortOrder))
	}
	return out
}

func newQuery(raw *RawRequest, sites []string) *Query {
	q := &Query{
		raw:   *raw,
		Sites: sites,
		Pagination: Pagination{
			Enabled:  deref(raw.Paginate, false),
			Page:     deref(raw.Page, DefaultPage),
			PageSize: deref(raw.PageSize, DefaultPageSize),
		},
		Format:    strings.ToLower(deref(raw.Format, FormatJSON)),
		SortBy:    deref(raw.SortBy, ""),
		SortOrder: strings.ToLower(deref(raw.SortOrder, jobs.SortDesc)),
		Filter: jobs.Filter{
			MinSalary:     raw.MinSalary,
			MaxSalary:     raw.MaxSalary,
			Company:       deref(raw.Company, ""),
			JobType:       deref(raw.JobTypeFilter, ""),
			City:          deref(raw.City, ""),
			State:         deref(raw.State, ""),
			TitleKeywords: deref(raw.TitleKeywords, ""),
		},
	}
	return q
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
