package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/psyjobs/jobspy-api/internal/config"
	"github.com/psyjobs/jobspy-api/internal/observability"
)

// Authentication errors. Their text is shown to clients.
var (
	ErrMissingCredential = errors.New("Missing API Key")
	ErrInvalidCredential = errors.New("Invalid API Key")
)

// Key entry formats.
const (
	KindPlain  = "plain"
	KindSHA256 = "sha256"
	KindBcrypt = "bcrypt"
)

const sha256Prefix = "sha256:"

// InconsistentRecommendation is reported when keys exist but auth is off.
const InconsistentRecommendation = "API keys are configured but authentication is disabled. Consider enabling ENABLE_API_KEY_AUTH."

type storedKey struct {
	kind   string
	digest [sha256.Size]byte
	hash   []byte
}

// Authenticator applies the single key policy of the service.
type Authenticator struct {
	keys     []storedKey
	enabled  bool
	explicit bool
	header   string
	logger   observability.Logger
	metrics  *Metrics
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithMetrics records validation outcomes.
func WithMetrics(m *Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// New parses the configured keys. Malformed digest or bcrypt entries are
// rejected so that a typo cannot silently lock every client out.
func New(cfg config.AuthConfig, opts ...Option) (*Authenticator, error) {
	a := &Authenticator{
		enabled:  cfg.Enabled,
		explicit: cfg.EnabledExplicit,
		header:   cfg.HeaderName,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.header == "" {
		a.header = "x-api-key"
	}

	a.keys = make([]storedKey, 0, len(cfg.Keys))
	for i, raw := range cfg.Keys {
		k, err := parseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("API key entry %d: %w", i+1, err)
		}
		a.keys = append(a.keys, k)
	}

	if cfg.Inconsistent() {
		a.logger.Warn("API keys are configured but authentication is disabled",
			observability.Int("keys", len(cfg.Keys)))
	}
	return a, nil
}

func parseKey(raw string) (storedKey, error) {
	switch {
	case strings.HasPrefix(raw, sha256Prefix):
		b, err := hex.DecodeString(strings.TrimPrefix(raw, sha256Prefix))
		if err != nil || len(b) != sha256.Size {
			return storedKey{}, errors.New("sha256 entry must hold 64 hex characters")
		}
		k := storedKey{kind: KindSHA256}
		copy(k.digest[:], b)
		return k, nil
	case isBcrypt(raw):
		if _, err := bcrypt.Cost([]byte(raw)); err != nil {
			return storedKey{}, fmt.Errorf("invalid bcrypt hash: %w", err)
		}
		return storedKey{kind: KindBcrypt, hash: []byte(raw)}, nil
	default:
		return storedKey{kind: KindPlain, digest: sha256.Sum256([]byte(raw))}, nil
	}
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Required reports whether requests must present a valid key.
func (a *Authenticator) Required() bool {
	return a.enabled && len(a.keys) > 0
}

// HeaderName is the request header carrying the key.
func (a *Authenticator) HeaderName() string {
	return a.header
}

// Authenticate returns nil when key is acceptable under the policy.
func (a *Authenticator) Authenticate(ctx context.Context, key string) error {
	if !a.Required() {
		return nil
	}

	start := time.Now()
	key = strings.TrimSpace(key)
	if key == "" {
		a.metrics.record(ResultRejected, ReasonMissing, time.Since(start))
		a.logger.WithContext(ctx).Debug("request without API key rejected")
		return ErrMissingCredential
	}

	if !a.match(key) {
		a.metrics.record(ResultRejected, ReasonInvalid, time.Since(start))
		a.logger.WithContext(ctx).Warn("invalid API key presented")
		return ErrInvalidCredential
	}

	a.metrics.record(ResultAccepted, ReasonValid, time.Since(start))
	return nil
}

func (a *Authenticator) match(key string) bool {
	presented := sha256.Sum256([]byte(key))
	matched := 0
	for i := range a.keys {
		k := &a.keys[i]
		switch k.kind {
		case KindBcrypt:
			if bcrypt.CompareHashAndPassword(k.hash, []byte(key)) == nil {
				matched = 1
			}
		default:
			matched |= subtle.ConstantTimeCompare(presented[:], k.digest[:])
		}
	}
	return matched == 1
}

// Status describes the auth policy for diagnostics.
type Status struct {
	Enabled         bool     `json:"enabled"`
	Required        bool     `json:"auth_required"`
	KeysConfigured  bool     `json:"api_keys_configured"`
	KeysCount       int      `json:"api_keys_count"`
	HeaderName      string   `json:"header_name"`
	EnabledSource   string   `json:"enabled_source"`
	Inconsistent    bool     `json:"inconsistent"`
	Recommendations []string `json:"recommendations"`
}

// Status reports the configured policy without revealing any key.
func (a *Authenticator) Status() Status {
	s := Status{
		Enabled:         a.enabled,
		Required:        a.Required(),
		KeysConfigured:  len(a.keys) > 0,
		KeysCount:       len(a.keys),
		HeaderName:      a.header,
		EnabledSource:   "implied",
		Inconsistent:    len(a.keys) > 0 && !a.enabled,
		Recommendations: []string{},
	}
	if a.explicit {
		s.EnabledSource = "explicit"
	}
	if s.Inconsistent {
		s.Recommendations = append(s.Recommendations, InconsistentRecommendation)
	}
	return s
}

// HashKey returns the "sha256:<hex>" form of key for use in API_KEYS.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return sha256Prefix + hex.EncodeToString(sum[:])
}
