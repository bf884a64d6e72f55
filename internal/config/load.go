package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSiteNames is every job board the scraper supports.
const DefaultSiteNames = "indeed,linkedin,zip_recruiter,glassdoor,google,bayt,naukri"

// ConfigFileEnv names the variable pointing at an optional YAML file.
const ConfigFileEnv = "JOBSPY_CONFIG_FILE"

// secretSettings are masked in Sources.
var secretSettings = map[string]bool{
	"API_KEYS":  true,
	"API_KEY":   true,
	"REDIS_URL": true,
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

type loadOptions struct {
	lookup   LookupFunc
	filePath string
}

// Option configures Load.
type Option func(*loadOptions)

// WithLookup replaces os.LookupEnv, mainly for tests.
func WithLookup(fn LookupFunc) Option {
	return func(o *loadOptions) {
		o.lookup = fn
	}
}

// WithFile loads settings from a YAML file below the environment.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		o.filePath = path
	}
}

// Load resolves every setting from the environment, then the optional YAML
// file, then built-in defaults, and validates the result.
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(o)
	}

	if o.filePath == "" {
		if p, ok := o.lookup(ConfigFileEnv); ok {
			o.filePath = strings.TrimSpace(p)
		}
	}

	var file map[string]string
	if o.filePath != "" {
		f, err := LoadFile(o.filePath, o.lookup)
		if err != nil {
			return nil, err
		}
		file = f
	}

	r := &resolver{
		lookup:  o.lookup,
		file:    file,
		sources: make(map[string]Setting),
	}

	cfg := r.build()
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(r.errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (r *resolver) build() *Config {
	cfg := &Config{
		Environment: r.str("ENVIRONMENT", "production"),
		Server: ServerConfig{
			Host:            r.str("HOST", "0.0.0.0"),
			Port:            r.integer("PORT", 8000),
			ReadTimeout:     r.seconds("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    r.seconds("SERVER_WRITE_TIMEOUT", 330*time.Second),
			ShutdownTimeout: r.seconds("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			TrustedProxies:  r.list("TRUSTED_PROXIES", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:         r.boolean("RATE_LIMIT_ENABLED", false),
			Requests:        r.integer("RATE_LIMIT_REQUESTS", 100),
			Window:          r.seconds("RATE_LIMIT_TIMEFRAME", time.Hour),
			Store:           strings.ToLower(r.str("RATE_LIMIT_STORE", BackendMemory)),
			CleanupSchedule: r.str("RATE_LIMIT_CLEANUP_SCHEDULE", "@every 5m"),
		},
		Cache: CacheConfig{
			Enabled:    r.boolean("ENABLE_CACHE", false),
			TTL:        r.seconds("CACHE_EXPIRY", time.Hour),
			Type:       strings.ToLower(r.str("CACHE_TYPE", BackendMemory)),
			MaxEntries: r.integer("CACHE_MAX_ENTRIES", 1000),
		},
		Redis: RedisConfig{
			URL:       r.str("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: r.str("REDIS_KEY_PREFIX", "jobspy:"),
		},
		Defaults: SearchDefaults{
			SiteNames:         r.list("DEFAULT_SITE_NAMES", DefaultSiteNames),
			ResultsWanted:     r.integer("DEFAULT_RESULTS_WANTED", 20),
			Distance:          r.integer("DEFAULT_DISTANCE", 50),
			DescriptionFormat: r.str("DEFAULT_DESCRIPTION_FORMAT", "markdown"),
			CountryIndeed:     r.str("DEFAULT_COUNTRY_INDEED", ""),
			Proxies:           r.list("DEFAULT_PROXIES", ""),
			CACertPath:        r.str("CA_CERT_PATH", ""),
		},
		Scraper: ScraperConfig{
			URL:              r.str("SCRAPER_URL", "http://localhost:9000/scrape"),
			Timeout:          r.seconds("SCRAPER_TIMEOUT", 300*time.Second),
			Workers:          r.integer("SCRAPER_WORKERS", 4),
			RateLimit:        r.float("SCRAPER_RATE_LIMIT", 0),
			Burst:            r.integer("SCRAPER_BURST", 1),
			Deduplicate:      r.boolean("SCRAPE_DEDUPLICATE", false),
			BreakerThreshold: r.integer("SCRAPER_BREAKER_THRESHOLD", 5),
			BreakerTimeout:   r.seconds("SCRAPER_BREAKER_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  strings.ToUpper(r.str("LOG_LEVEL", "INFO")),
			Format: strings.ToLower(r.str("LOG_FORMAT", "json")),
		},
		CORS: CORSConfig{
			Origins: r.list("CORS_ORIGINS", "*"),
		},
		Health: HealthConfig{
			Enabled:  r.boolean("ENABLE_HEALTH_ENDPOINTS", true),
			Detailed: r.boolean("ENABLE_DETAILED_HEALTH", true),
		},
		Metrics: MetricsConfig{
			Enabled: r.boolean("METRICS_ENABLED", true),
			Port:    r.integer("METRICS_PORT", 9090),
			Path:    r.str("METRICS_PATH", "/metrics"),
		},
		Tracing: TracingConfig{
			Enabled:      r.boolean("TRACING_ENABLED", false),
			Endpoint:     r.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			SamplingRate: r.float("TRACING_SAMPLING_RATE", 1.0),
		},
	}

	cfg.Auth = r.auth()
	cfg.sources = r.sources
	return cfg
}

func (r *resolver) auth() AuthConfig {
	keys := r.list("API_KEYS", "")
	if legacy := r.str("API_KEY", ""); legacy != "" && !contains(keys, legacy) {
		keys = append(keys, legacy)
	}

	a := AuthConfig{
		Keys:       keys,
		HeaderName: r.str("API_KEY_HEADER_NAME", "x-api-key"),
	}

	if _, _, ok := r.raw("ENABLE_API_KEY_AUTH"); ok {
		a.Enabled = r.boolean("ENABLE_API_KEY_AUTH", false)
		a.EnabledExplicit = true
	} else {
		a.Enabled = len(keys) > 0
		r.sources["ENABLE_API_KEY_AUTH"] = Setting{Value: strconv.FormatBool(a.Enabled), Source: SourceDefault}
	}
	return a
}

// resolver looks settings up by name and records where each came from.
// Parse failures are collected so a single Load reports all of them.
type resolver struct {
	lookup  LookupFunc
	file    map[string]string
	sources map[string]Setting
	errs    []error
}

// raw returns the first non-empty value from the environment or the file.
func (r *resolver) raw(key string) (string, Source, bool) {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceEnvironment, true
	}
	if v, ok := r.file[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceFile, true
	}
	return "", SourceDefault, false
}

func (r *resolver) record(key, value string, src Source) {
	if secretSettings[key] && value != "" {
		value = "********"
	}
	r.sources[key] = Setting{Value: value, Source: src}
}

func (r *resolver) str(key, def string) string {
	v, src, ok := r.raw(key)
	if !ok {
		v = def
	}
	r.record(key, v, src)
	return v
}

func (r *resolver) boolean(key string, def bool) bool {
	v, src, ok := r.raw(key)
	if !ok {
		r.record(key, strconv.FormatBool(def), src)
		return def
	}
	b, err := ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		b = def
	}
	r.record(key, strconv.FormatBool(b), src)
	return b
}

func (r *resolver) integer(key string, def int) int {
	v, src, ok := r.raw(key)
	if !ok {
		r.record(key, strconv.Itoa(def), src)
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		n = def
	}
	r.record(key, strconv.Itoa(n), src)
	return n
}

func (r *resolver) float(key string, def float64) float64 {
	v, src, ok := r.raw(key)
	if !ok {
		r.record(key, strconv.FormatFloat(def, 'g', -1, 64), src)
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, v))
		f = def
	}
	r.record(key, strconv.FormatFloat(f, 'g', -1, 64), src)
	return f
}

// seconds accepts a bare integer number of seconds or a Go duration string.
func (r *resolver) seconds(key string, def time.Duration) time.Duration {
	v, src, ok := r.raw(key)
	if !ok {
		r.record(key, strconv.Itoa(int(def.Seconds())), src)
		return def
	}
	d, err := ParseSeconds(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		d = def
	}
	r.record(key, v, src)
	return d
}

func (r *resolver) list(key, def string) []string {
	v, src, ok := r.raw(key)
	if !ok {
		v = def
	}
	r.record(key, v, src)
	return SplitList(v)
}

// ParseBool parses the boolean spellings accepted in the environment.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "yes", "y", "1", "on":
		return true, nil
	case "false", "f", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a boolean", v)
	}
}

// ParseSeconds parses "3600" as seconds or "1h" as a duration.
func ParseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%q is neither seconds nor a duration", v)
	}
	return d, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
