package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Backend names accepted by CACHE_TYPE and RATE_LIMIT_STORE.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the process-wide configuration. It is built once by Load and
// passed by reference to every component; nothing mutates it afterwards.
type Config struct {
	Environment string
	Server      ServerConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Defaults    SearchDefaults
	Scraper     ScraperConfig
	Log         LogConfig
	CORS        CORSConfig
	Health      HealthConfig
	Metrics     MetricsConfig
	Tracing     TracingConfig

	sources map[string]Setting
}

// ServerConfig holds the public HTTP listener settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty trusts none.
	TrustedProxies []string
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds API key settings.
type AuthConfig struct {
	// Keys merges API_KEYS and the legacy single API_KEY.
	Keys       []string
	HeaderName string
	// Enabled is ENABLE_API_KEY_AUTH when set, otherwise implied by Keys.
	Enabled bool
	// EnabledExplicit records whether ENABLE_API_KEY_AUTH was set at all.
	EnabledExplicit bool
}

// Required reports whether requests must present a valid key.
func (a AuthConfig) Required() bool {
	return a.Enabled && len(a.Keys) > 0
}

// Inconsistent reports keys that are configured but not enforced.
func (a AuthConfig) Inconsistent() bool {
	return len(a.Keys) > 0 && !a.Enabled
}

// RateLimitConfig holds sliding window settings.
type RateLimitConfig struct {
	Enabled         bool
	Requests        int
	Window          time.Duration
	Store           string
	CleanupSchedule string
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	Type       string
	MaxEntries int
}

// RedisConfig holds the connection shared by the redis backends.
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

// SearchDefaults are merged into every search before fingerprinting.
type SearchDefaults struct {
	SiteNames         []string
	ResultsWanted     int
	Distance          int
	DescriptionFormat string
	CountryIndeed     string
	Proxies           []string
	CACertPath        string
}

// ScraperConfig holds the upstream scraping service settings.
type ScraperConfig struct {
	URL              string
	Timeout          time.Duration
	Workers          int
	RateLimit        float64
	Burst            int
	Deduplicate      bool
	BreakerThreshold int
	BreakerTimeout   time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig holds allowed origins.
type CORSConfig struct {
	Origins []string
}

// HealthConfig gates the diagnostic endpoints.
type HealthConfig struct {
	Enabled  bool
	Detailed bool
}

// MetricsConfig holds the metrics listener settings.
type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
}

// Source tells where a setting value came from.
type Source string

// Setting sources.
const (
	SourceEnvironment Source = "environment"
	SourceFile        Source = "file"
	SourceDefault     Source = "default"
)

// Setting is one resolved configuration value.
type Setting struct {
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Sources returns every setting name with its resolved value and origin.
// Secret values are masked.
func (c *Config) Sources() map[string]Setting {
	out := make(map[string]Setting, len(c.sources))
	for k, v := range c.sources {
		out[k] = v
	}
	return out
}

// SourceOf returns the origin of a single setting.
func (c *Config) SourceOf(key string) Source {
	if s, ok := c.sources[key]; ok {
		return s.Source
	}
	return SourceDefault
}

// SettingNames returns the sorted names of all known settings.
func (c *Config) SettingNames() []string {
	names := make([]string, 0, len(c.sources))
	for k := range c.sources {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Auth.HeaderName) == "" {
		errs = append(errs, errors.New("API_KEY_HEADER_NAME must not be empty"))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.Requests))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_TIMEFRAME must be positive, got %s", c.RateLimit.Window))
		}
	}
	if !validBackend(c.RateLimit.Store) {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STORE must be memory or redis, got %q", c.RateLimit.Store))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_EXPIRY must be positive, got %s", c.Cache.TTL))
	}
	if !validBackend(c.Cache.Type) {
		errs = append(errs, fmt.Errorf("CACHE_TYPE must be memory or redis, got %q", c.Cache.Type))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must not be negative, got %d", c.Cache.MaxEntries))
	}
	if c.Scraper.Workers <= 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_WORKERS must be positive, got %d", c.Scraper.Workers))
	}
	if c.Scraper.BreakerThreshold <= 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_BREAKER_THRESHOLD must be positive, got %d", c.Scraper.BreakerThreshold))
	}
	if c.Scraper.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_RATE_LIMIT must not be negative, got %g", c.Scraper.RateLimit))
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLING_RATE must be in [0,1], got %g", c.Tracing.SamplingRate))
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("METRICS_PORT must be in 1..65535, got %d", c.Metrics.Port))
	}

	return errors.Join(errs...)
}

func validBackend(name string) bool {
	return name == BackendMemory || name == BackendRedis
}
