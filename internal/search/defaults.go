package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/scraper"
)

// Parameters is the canonical search: validated, normalized and merged with
// defaults. It is exactly what the scraper receives.
type Parameters = scraper.Request

// DefaultVerbose is the scraper log level used when the client sends none.
const DefaultVerbose = 2

// Defaults fills omitted parameters from process configuration.
type Defaults struct {
	SiteNames         []string
	Distance          int
	ResultsWanted     int
	DescriptionFormat string
	CountryIndeed     string
	Proxies           []string
	CACertPath        string
}

// NewDefaults copies the configured search defaults.
func NewDefaults(cfg config.SearchDefaults) Defaults {
	return Defaults{
		SiteNames:         normalizeSites(cfg.SiteNames),
		Distance:          cfg.Distance,
		ResultsWanted:     cfg.ResultsWanted,
		DescriptionFormat: cfg.DescriptionFormat,
		CountryIndeed:     cfg.CountryIndeed,
		Proxies:           slices.Clone(cfg.Proxies),
		CACertPath:        cfg.CACertPath,
	}
}

// Apply merges q with the defaults. Explicit values always win, including
// explicit zero values.
func (d Defaults) Apply(q *Query) Parameters {
	raw := &q.raw

	sites := q.Sites
	if len(sites) == 0 {
		sites = d.SiteNames
	}
	if len(sites) == 0 {
		sites = Sites
	}

	proxies := raw.Proxies
	if len(proxies) == 0 {
		proxies = d.Proxies
	}

	country := strings.TrimSpace(deref(raw.CountryIndeed, ""))
	if country == "" {
		country = d.CountryIndeed
	}

	format := deref(raw.DescriptionFormat, "")
	if format == "" {
		format = d.DescriptionFormat
	}

	return Parameters{
		SiteName:                 slices.Clone(sites),
		SearchTerm:               deref(raw.SearchTerm, ""),
		GoogleSearchTerm:         deref(raw.GoogleSearchTerm, ""),
		Location:                 deref(raw.Location, ""),
		Distance:                 deref(raw.Distance, d.Distance),
		JobType:                  deref(raw.JobType, ""),
		Proxies:                  slices.Clone(proxies),
		IsRemote:                 raw.IsRemote,
		ResultsWanted:            deref(raw.ResultsWanted, d.ResultsWanted),
		HoursOld:                 raw.HoursOld,
		EasyApply:                raw.EasyApply,
		DescriptionFormat:        format,
		Offset:                   deref(raw.Offset, 0),
		Verbose:                  deref(raw.Verbose, DefaultVerbose),
		LinkedinFetchDescription: deref(raw.LinkedinFetchDescription, false),
		LinkedinCompanyIDs:       slices.Clone(raw.LinkedinCompanyIDs),
		CountryIndeed:            country,
		EnforceAnnualSalary:      deref(raw.EnforceAnnualSalary, false),
		CACert:                   d.CACertPath,
	}
}

// Fingerprint digests canonical parameters into a cache key. Sites and
// company ids are treated as sets and the serialized object has its keys
// sorted, so equivalent searches always collide.
func Fingerprint(p Parameters) (string, error) {
	p.SiteName = sortedUnique(p.SiteName)
	if len(p.LinkedinCompanyIDs) > 0 {
		ids := slices.Clone(p.LinkedinCompanyIDs)
		slices.Sort(ids)
		p.LinkedinCompanyIDs = slices.Compact(ids)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode parameters: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("failed to canonicalize parameters: %w", err)
	}
	canonical, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode parameters: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func sortedUnique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
