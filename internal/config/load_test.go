package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithLookup(envMap(nil)))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.Auth.Enabled)
	assert.False(t, cfg.Auth.EnabledExplicit)
	assert.Equal(t, "x-api-key", cfg.Auth.HeaderName)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Store)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, []string{"indeed", "linkedin", "zip_recruiter", "glassdoor", "google", "bayt", "naukri"}, cfg.Defaults.SiteNames)
	assert.Equal(t, 20, cfg.Defaults.ResultsWanted)
	assert.Equal(t, 50, cfg.Defaults.Distance)
	assert.Equal(t, "markdown", cfg.Defaults.DescriptionFormat)
	assert.Empty(t, cfg.Defaults.CountryIndeed)
	assert.Nil(t, cfg.Defaults.Proxies)
	assert.Equal(t, 4, cfg.Scraper.Workers)
	assert.Equal(t, 300*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 5, cfg.Scraper.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Scraper.BreakerTimeout)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Health.Enabled)
	assert.True(t, cfg.Health.Detailed)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)

	assert.Equal(t, SourceDefault, cfg.SourceOf("PORT"))
}

func TestLoad_Environment(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithLookup(envMap(map[string]string{
		"PORT":                 "9001",
		"RATE_LIMIT_ENABLED":   "yes",
		"RATE_LIMIT_REQUESTS":  "5",
		"RATE_LIMIT_TIMEFRAME": "60",
		"CACHE_EXPIRY":         "2m",
		"ENABLE_CACHE":         "on",
		"DEFAULT_SITE_NAMES":   " indeed , linkedin ,,",
		"LOG_LEVEL":            "debug",
		"SCRAPER_RATE_LIMIT":   "2.5",
		"TRUSTED_PROXIES":      "10.0.0.0/8, 192.0.2.1",
	})))
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"indeed", "linkedin"}, cfg.Defaults.SiteNames)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, 2.5, cfg.Scraper.RateLimit)

	assert.Equal(t, SourceEnvironment, cfg.SourceOf("PORT"))
	assert.Equal(t, Setting{Value: "9001", Source: SourceEnvironment}, cfg.Sources()["PORT"])
}

func TestLoad_AuthResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		env          map[string]string
		wantKeys     []string
		wantEnabled  bool
		wantExplicit bool
		wantRequired bool
		inconsistent bool
	}{
		{
			name:     "no keys",
			env:      nil,
			wantKeys: nil,
		},
		{
			name:         "keys imply enabled",
			env:          map[string]string{"API_KEYS": "a,b"},
			wantKeys:     []string{"a", "b"},
			wantEnabled:  true,
			wantRequired: true,
		},
		{
			name:         "legacy key merged",
			env:          map[string]string{"API_KEYS": "a", "API_KEY": "legacy"},
			wantKeys:     []string{"a", "legacy"},
			wantEnabled:  true,
			wantRequired: true,
		},
		{
			name:        "legacy key not duplicated",
			env:         map[string]string{"API_KEYS": "a", "API_KEY": "a"},
			wantKeys:    []string{"a"},
			wantEnabled: true, wantRequired: true,
		},
		{
			name:         "explicitly disabled with keys",
			env:          map[string]string{"API_KEYS": "a", "ENABLE_API_KEY_AUTH": "false"},
			wantKeys:     []string{"a"},
			wantExplicit: true,
			inconsistent: true,
		},
		{
			name:         "explicitly enabled without keys",
			env:          map[string]string{"ENABLE_API_KEY_AUTH": "true"},
			wantEnabled:  true,
			wantExplicit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load(WithLookup(envMap(tt.env)))
			require.NoError(t, err)

			assert.Equal(t, tt.wantKeys, cfg.Auth.Keys)
			assert.Equal(t, tt.wantEnabled, cfg.Auth.Enabled)
			assert.Equal(t, tt.wantExplicit, cfg.Auth.EnabledExplicit)
			assert.Equal(t, tt.wantRequired, cfg.Auth.Required())
			assert.Equal(t, tt.inconsistent, cfg.Auth.Inconsistent())
		})
	}
}

func TestLoad_MasksSecrets(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithLookup(envMap(map[string]string{"API_KEYS": "secret"})))
	require.NoError(t, err)

	s := cfg.Sources()["API_KEYS"]
	assert.Equal(t, "********", s.Value)
	assert.Equal(t, SourceEnvironment, s.Source)
	assert.Equal(t, []string{"secret"}, cfg.Auth.Keys)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad int", env: map[string]string{"PORT": "eighty"}, wantErr: "PORT"},
		{name: "bad bool", env: map[string]string{"ENABLE_CACHE": "maybe"}, wantErr: "ENABLE_CACHE"},
		{name: "bad duration", env: map[string]string{"CACHE_EXPIRY": "soon"}, wantErr: "CACHE_EXPIRY"},
		{name: "port range", env: map[string]string{"PORT": "70000"}, wantErr: "PORT must be in"},
		{name: "bad backend", env: map[string]string{"CACHE_TYPE": "memcached"}, wantErr: "CACHE_TYPE"},
		{name: "zero requests", env: map[string]string{"RATE_LIMIT_ENABLED": "true", "RATE_LIMIT_REQUESTS": "0"}, wantErr: "RATE_LIMIT_REQUESTS"},
		{name: "zero workers", env: map[string]string{"SCRAPER_WORKERS": "0"}, wantErr: "SCRAPER_WORKERS"},
		{name: "sampling rate", env: map[string]string{"TRACING_SAMPLING_RATE": "2"}, wantErr: "TRACING_SAMPLING_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load(WithLookup(envMap(tt.env)))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "jobspy.yaml")
	content := `
port: 8100
rate_limit_enabled: true
RATE_LIMIT_REQUESTS: 10
default_site_names:
  - indeed
  - glassdoor
redis_url: ${TEST_REDIS:-redis://cache:6379/1}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	env := map[string]string{"PORT": "8200"}
	cfg, err := Load(WithLookup(envMap(env)), WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, 8200, cfg.Server.Port, "environment must win over the file")
	assert.Equal(t, SourceEnvironment, cfg.SourceOf("PORT"))
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, SourceFile, cfg.SourceOf("RATE_LIMIT_ENABLED"))
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, []string{"indeed", "glassdoor"}, cfg.Defaults.SiteNames)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestLoad_FileFromEnvironment(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o600))

	cfg, err := Load(WithLookup(envMap(map[string]string{ConfigFileEnv: path})))
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(WithLookup(envMap(nil)), WithFile(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"true", "TRUE", "t", "yes", "1", "on"} {
		b, err := ParseBool(v)
		require.NoError(t, err, v)
		assert.True(t, b, v)
	}
	for _, v := range []string{"false", "f", "No", "0", "off"} {
		b, err := ParseBool(v)
		require.NoError(t, err, v)
		assert.False(t, b, v)
	}
	_, err := ParseBool("perhaps")
	assert.Error(t, err)
}

func TestParseSeconds(t *testing.T) {
	t.Parallel()

	d, err := ParseSeconds("3600")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	d, err = ParseSeconds("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseSeconds("later")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("  "))
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b,"))
}

func TestSettingNames_Sorted(t *testing.T) {
	t.Parallel()

	cfg, err := Load(WithLookup(envMap(nil)))
	require.NoError(t, err)

	names := cfg.SettingNames()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "ENABLE_API_KEY_AUTH")
}
