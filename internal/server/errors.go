package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psyjobs/jobspy-api/internal/auth/apikey"
	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/response"
	"github.com/psyjobs/jobspy-api/internal/search"
	"github.com/psyjobs/jobspy-api/internal/server/middleware"
)

// Envelope titles.
const (
	RequestErrorTitle = "Request Error"
	ServerErrorTitle  = "Server Error"
)

// StatusClientClosedRequest is recorded when the client went away before
// the response was ready. Nothing is written.
const StatusClientClosedRequest = 499

// Reasons for rejected requests that do not come from a typed error.
const (
	MessageNotFound         = "Not Found"
	MessageMethodNotAllowed = "Method Not Allowed"
	MessageHealthDisabled   = "Health endpoints are disabled"
	MessageTimeout          = "Request timed out"
)

// RequestError is the body of every rejected request.
type RequestError struct {
	Error       string       `json:"error"`
	StatusCode  int          `json:"status_code"`
	Message     any          `json:"message"`
	Path        string       `json:"path"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Suggestion tells the client how to fix a rejected request.
type Suggestion struct {
	Parameter        string `json:"parameter,omitempty"`
	Message          string `json:"message"`
	Suggestion       string `json:"suggestion"`
	DocumentationURL string `json:"documentation_url,omitempty"`
}

// ServerError is the body of an unexpected failure.
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// abortRequest writes a Request Error envelope.
func abortRequest(c *gin.Context, status int, message any, suggestions ...Suggestion) {
	c.AbortWithStatusJSON(status, RequestError{
		Error:       RequestErrorTitle,
		StatusCode:  status,
		Message:     message,
		Path:        c.Request.URL.Path,
		Suggestions: suggestions,
	})
}

// fail maps err onto the error envelope and aborts the request.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		invalid *search.ValidationError
		page    *response.PageError
		scrape  *search.ScrapeError
		limited *middleware.LimitExceededError
	)

	switch {
	case errors.As(err, &invalid):
		abortRequest(c, http.StatusBadRequest, invalid)

	case errors.Is(err, search.ErrInvalidBody):
		abortRequest(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, apikey.ErrMissingCredential), errors.Is(err, apikey.ErrInvalidCredential):
		header := s.auth.HeaderName()
		abortRequest(c, http.StatusForbidden, err.Error(), Suggestion{
			Parameter:        header,
			Message:          "Missing or invalid API key",
			Suggestion:       "Include a valid API key in the " + header + " header",
			DocumentationURL: "/docs#section/Authentication",
		})

	case errors.As(err, &limited):
		abortRequest(c, http.StatusTooManyRequests, limited.Error())

	case errors.As(err, &page):
		abortRequest(c, http.StatusNotFound, page.Detail(), Suggestion{
			Parameter:  "page",
			Message:    "Page number out of range",
			Suggestion: page.Suggestion(),
		})

	case errors.As(err, &scrape):
		abortRequest(c, http.StatusInternalServerError, scrape.Payload())

	case errors.Is(err, context.Canceled):
		s.logger.WithContext(c.Request.Context()).Debug("client closed request",
			observability.String("path", c.Request.URL.Path))
		c.AbortWithStatus(StatusClientClosedRequest)

	case errors.Is(err, context.DeadlineExceeded):
		abortRequest(c, http.StatusGatewayTimeout, MessageTimeout)

	default:
		s.logger.WithContext(c.Request.Context()).Error("unhandled error",
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ServerError{
			Error:   ServerErrorTitle,
			Message: err.Error(),
			Path:    c.Request.URL.Path,
		})
	}
}

// recoverPanic writes the Server Error envelope for a recovered panic.
func recoverPanic(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ServerError{
		Error:   ServerErrorTitle,
		Message: "An unexpected error occurred",
		Path:    c.Request.URL.Path,
	})
}
