package health

import (
	"runtime"
	"time"

	"github.com/psyjobs/jobspy-api/internal/auth/apikey"
	"github.com/psyjobs/jobspy-api/internal/config"
)

// DetailsDisabledMessage replaces diagnostic payloads when
// ENABLE_DETAILED_HEALTH is off.
const DetailsDisabledMessage = "Detailed health information is disabled. Enable with ENABLE_DETAILED_HEALTH=true"

// keySettings are summarized first in the config sources report.
var keySettings = []string{
	"ENABLE_API_KEY_AUTH", "API_KEYS", "RATE_LIMIT_ENABLED",
	"ENABLE_CACHE", "ENVIRONMENT", "LOG_LEVEL",
}

// AuthSummary describes the auth policy without revealing keys.
type AuthSummary struct {
	Enabled           bool   `json:"enabled"`
	APIKeysConfigured bool   `json:"api_keys_configured"`
	APIKeysCount      int    `json:"api_keys_count"`
	HeaderName        string `json:"header_name,omitempty"`
	Inconsistent      bool   `json:"inconsistent"`
}

// RateLimitSummary describes the limiter settings.
type RateLimitSummary struct {
	Enabled          bool   `json:"enabled"`
	RequestsLimit    int    `json:"requests_limit"`
	TimeframeSeconds int    `json:"timeframe_seconds"`
	Store            string `json:"store"`
}

// CacheSummary describes the result cache settings.
type CacheSummary struct {
	Enabled       bool   `json:"enabled"`
	ExpirySeconds int    `json:"expiry_seconds"`
	Type          string `json:"type"`
}

// EndpointSummary describes which diagnostics are served.
type EndpointSummary struct {
	Enabled        bool `json:"enabled"`
	DetailedHealth bool `json:"detailed_health"`
}

// DefaultsSummary lists the configured search defaults.
type DefaultsSummary struct {
	DefaultSiteNames         []string `json:"default_site_names"`
	DefaultResultsWanted     int      `json:"default_results_wanted"`
	DefaultDistance          int      `json:"default_distance"`
	DefaultDescriptionFormat string   `json:"default_description_format"`
	DefaultCountryIndeed     string   `json:"default_country_indeed"`
}

// Report is the /health payload.
type Report struct {
	Status          string           `json:"status"`
	Version         string           `json:"version"`
	Environment     string           `json:"environment"`
	LogLevel        string           `json:"log_level"`
	Uptime          string           `json:"uptime"`
	Auth            AuthSummary      `json:"auth"`
	RateLimiting    RateLimitSummary `json:"rate_limiting"`
	Cache           CacheSummary     `json:"cache"`
	HealthEndpoints EndpointSummary  `json:"health_endpoints"`
	Config          DefaultsSummary  `json:"config"`
	Readiness       *Readiness       `json:"readiness,omitempty"`
	Timestamp       float64          `json:"timestamp"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func authSummary(s apikey.Status) AuthSummary {
	return AuthSummary{
		Enabled:           s.Enabled,
		APIKeysConfigured: s.KeysConfigured,
		APIKeysCount:      s.KeysCount,
		HeaderName:        s.HeaderName,
		Inconsistent:      s.Inconsistent,
	}
}

func rateLimitSummary(cfg config.RateLimitConfig) RateLimitSummary {
	return RateLimitSummary{
		Enabled:          cfg.Enabled,
		RequestsLimit:    cfg.Requests,
		TimeframeSeconds: int(cfg.Window / time.Second),
		Store:            cfg.Store,
	}
}

func cacheSummary(cfg config.CacheConfig) CacheSummary {
	return CacheSummary{
		Enabled:       cfg.Enabled,
		ExpirySeconds: int(cfg.TTL / time.Second),
		Type:          cfg.Type,
	}
}

// BuildReport assembles the /health payload. readiness may be nil.
func (c *Checker) BuildReport(cfg *config.Config, auth apikey.Status, readiness *Readiness) *Report {
	status := StatusOK
	if readiness != nil {
		status = readiness.Status
	}
	return &Report{
		Status:       status,
		Version:      c.version,
		Environment:  cfg.Environment,
		LogLevel:     cfg.Log.Level,
		Uptime:       c.Uptime().Round(time.Second).String(),
		Auth:         authSummary(auth),
		RateLimiting: rateLimitSummary(cfg.RateLimit),
		Cache:        cacheSummary(cfg.Cache),
		HealthEndpoints: EndpointSummary{
			Enabled:        cfg.Health.Enabled,
			DetailedHealth: cfg.Health.Detailed,
		},
		Config: DefaultsSummary{
			DefaultSiteNames:         cfg.Defaults.SiteNames,
			DefaultResultsWanted:     cfg.Defaults.ResultsWanted,
			DefaultDistance:          cfg.Defaults.Distance,
			DefaultDescriptionFormat: cfg.Defaults.DescriptionFormat,
			DefaultCountryIndeed:     cfg.Defaults.CountryIndeed,
		},
		Readiness: readiness,
		Timestamp: unixSeconds(time.Now()),
	}
}

// AuthDiagnostics is the /auth-status payload.
type AuthDiagnostics struct {
	apikey.Status
	KeyInRequest bool   `json:"api_key_in_request"`
	Environment  string `json:"environment"`
}

// NewAuthDiagnostics combines the policy with what the caller presented.
func NewAuthDiagnostics(s apikey.Status, keyInRequest bool, environment string) AuthDiagnostics {
	return AuthDiagnostics{Status: s, KeyInRequest: keyInRequest, Environment: environment}
}

// SystemInfo describes the running process.
type SystemInfo struct {
	Platform     string `json:"platform"`
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
}

// ScraperSummary describes the upstream scraper settings.
type ScraperSummary struct {
	TimeoutSeconds int     `json:"timeout_seconds"`
	Workers        int     `json:"workers"`
	RateLimit      float64 `json:"rate_limit"`
	Deduplicate    bool    `json:"deduplicate"`
	BreakerState   string  `json:"breaker_state,omitempty"`
}

// APIConfigDetails is the configuration part of the /api-config payload.
type APIConfigDetails struct {
	Environment     string           `json:"environment"`
	LogLevel        string           `json:"log_level"`
	Authentication  AuthSummary      `json:"authentication"`
	RateLimiting    RateLimitSummary `json:"rate_limiting"`
	Caching         CacheSummary     `json:"caching"`
	HealthEndpoints EndpointSummary  `json:"health_endpoints"`
	Scraper         ScraperSummary   `json:"scraper"`
}

// APIConfig is the /api-config payload. Only Status and Message are set when
// details are disabled.
type APIConfig struct {
	Status    string            `json:"status"`
	Message   string            `json:"message,omitempty"`
	System    *SystemInfo       `json:"system,omitempty"`
	Config    *APIConfigDetails `json:"config,omitempty"`
	Timestamp float64           `json:"timestamp,omitempty"`
}

// NewAPIConfig builds the /api-config payload.
func NewAPIConfig(cfg *config.Config, auth apikey.Status, breakerState string) *APIConfig {
	if !cfg.Health.Detailed {
		return &APIConfig{Status: StatusOK, Message: DetailsDisabledMessage}
	}
	return &APIConfig{
		Status: StatusOK,
		System: &SystemInfo{
			Platform:     runtime.GOOS + "/" + runtime.GOARCH,
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
		},
		Config: &APIConfigDetails{
			Environment:    cfg.Environment,
			LogLevel:       cfg.Log.Level,
			Authentication: authSummary(auth),
			RateLimiting:   rateLimitSummary(cfg.RateLimit),
			Caching:        cacheSummary(cfg.Cache),
			HealthEndpoints: EndpointSummary{
				Enabled:        cfg.Health.Enabled,
				DetailedHealth: cfg.Health.Detailed,
			},
			Scraper: ScraperSummary{
				TimeoutSeconds: int(cfg.Scraper.Timeout / time.Second),
				Workers:        cfg.Scraper.Workers,
				RateLimit:      cfg.Scraper.RateLimit,
				Deduplicate:    cfg.Scraper.Deduplicate,
				BreakerState:   breakerState,
			},
		},
		Timestamp: unixSeconds(time.Now()),
	}
}

// ConfigSources is the /config-sources payload.
type ConfigSources struct {
	Status          string                    `json:"status"`
	Message         string                    `json:"message,omitempty"`
	KeySettings     map[string]config.Setting `json:"key_settings,omitempty"`
	AllSettings     map[string]config.Setting `json:"all_settings,omitempty"`
	Inconsistencies []string                  `json:"inconsistencies"`
	Timestamp       float64                   `json:"timestamp,omitempty"`
}

// NewConfigSources lists every setting with the place it came from.
func NewConfigSources(cfg *config.Config, auth apikey.Status) *ConfigSources {
	if !cfg.Health.Detailed {
		return &ConfigSources{Status: StatusOK, Message: DetailsDisabledMessage, Inconsistencies: []string{}}
	}

	all := cfg.Sources()
	key := make(map[string]config.Setting, len(keySettings))
	for _, name := range keySettings {
		if s, ok := all[name]; ok {
			key[name] = s
		}
	}

	inconsistencies := []string{}
	if auth.Inconsistent {
		inconsistencies = append(inconsistencies, auth.Recommendations...)
	}

	return &ConfigSources{
		Status:          StatusOK,
		KeySettings:     key,
		AllSettings:     all,
		Inconsistencies: inconsistencies,
		Timestamp:       unixSeconds(time.Now()),
	}
}
