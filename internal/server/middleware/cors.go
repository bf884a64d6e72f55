package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const wildcard = "*"

// CORSConfig describes which cross-origin callers are served.
type CORSConfig struct {
	// AllowOrigins lists permitted origins; "*" permits any.
	AllowOrigins []string

	// AllowHeaders of "*" reflects whatever the preflight asks for.
	AllowHeaders []string

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int

	AllowMethods     []string
	ExposeHeaders    []string
	AllowCredentials bool
}

// DefaultCORSConfig permits origins with credentials and any request header.
// Browsers may read the tracking and rate limit headers.
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{wildcard},
		ExposeHeaders:    []string{RequestIDHeader, ProcessTimeHeader, HeaderLimit, HeaderRemaining, HeaderReset, HeaderRetryAfter},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// CORS serves the given origins with DefaultCORSConfig.
func CORS(origins []string) gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig(origins))
}

// CORSWithConfig answers preflights with 204 and decorates actual requests.
// Requests from origins outside the policy pass through untouched.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	p := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !p.permits(origin) {
			c.Next()
			return
		}

		p.decorate(c.Writer.Header(), origin)

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			p.preflight(c.Writer.Header(), c.GetHeader("Access-Control-Request-Headers"))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// corsPolicy is CORSConfig with its header values rendered once.
type corsPolicy struct {
	origins     []string
	anyOrigin   bool
	reflectHdrs bool
	credentials bool
	methods     string
	headers     string
	expose      string
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{wildcard}
	}
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = []string{"Origin", "Content-Length", "Content-Type"}
	}

	return &corsPolicy{
		origins:     origins,
		anyOrigin:   slices.Contains(origins, wildcard),
		reflectHdrs: slices.Contains(headers, wildcard),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(methods, ", "),
		headers:     strings.Join(headers, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		maxAge:      strconv.Itoa(cfg.MaxAge),
	}
}

func (p *corsPolicy) permits(origin string) bool {
	if p.anyOrigin {
		return true
	}
	return slices.ContainsFunc(p.origins, func(o string) bool {
		return strings.EqualFold(o, origin)
	})
}

// decorate sets the headers common to preflight and actual responses.
// A literal "*" is invalid alongside credentials, so the origin is echoed.
func (p *corsPolicy) decorate(h http.Header, origin string) {
	if p.anyOrigin && !p.credentials {
		h.Set("Access-Control-Allow-Origin", wildcard)
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.expose != "" {
		h.Set("Access-Control-Expose-Headers", p.expose)
	}
}

func (p *corsPolicy) preflight(h http.Header, requested string) {
	allowed := p.headers
	if p.reflectHdrs && requested != "" {
		allowed = requested
	}
	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", allowed)
	h.Set("Access-Control-Max-Age", p.maxAge)
}
