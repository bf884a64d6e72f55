package apikey

import (
	"net/http"
	"strings"
)

// Extractor reads the presented key from a request.
type Extractor interface {
	Extract(r *http.Request) string
}

// HeaderExtractor reads the key from a single header.
type HeaderExtractor struct {
	header string
}

// NewHeaderExtractor creates a header extractor. If header is empty, it
// defaults to "x-api-key".
func NewHeaderExtractor(header string) *HeaderExtractor {
	if header == "" {
		header = "x-api-key"
	}
	return &HeaderExtractor{header: header}
}

// Extract returns the trimmed header value, or "" when absent.
func (e *HeaderExtractor) Extract(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(e.header))
}
