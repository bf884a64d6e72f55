package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psyjobs/jobspy-api/internal/health"
	"github.com/psyjobs/jobspy-api/internal/observability"
	"github.com/psyjobs/jobspy-api/internal/response"
	"github.com/psyjobs/jobspy-api/internal/search"
)

// Welcome is the body of GET /.
type Welcome struct {
	Message     string `json:"message"`
	DocsURL     string `json:"docs_url"`
	APIRoot     string `json:"api_root"`
	HealthCheck string `json:"health_check"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, Welcome{
		Message:     "Welcome to JobSpy Docker API!",
		DocsURL:     DocsPath,
		APIRoot:     APIRoot,
		HealthCheck: "/health",
	})
}

// handleSearchQuery serves GET searches. Page links rewrite the request's
// own query string.
func (s *Server) handleSearchQuery(c *gin.Context) {
	raw := search.BindQuery(c.Request.URL.Query())
	s.search(c, raw, response.QueryLinker(c.Request))
}

// handleSearchBody serves POST searches. A body has no URL to link to, so
// paginated responses carry null page links.
func (s *Server) handleSearchBody(c *gin.Context) {
	raw, err := search.BindJSON(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.search(c, raw, nil)
}

func (s *Server) search(c *gin.Context, raw *search.RawRequest, links response.PageLinker) {
	ctx := c.Request.Context()

	out, err := s.searcher.Search(ctx, raw)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp, err := response.Shape(out, links)
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := resp.Write(c.Writer); err != nil {
		s.logger.WithContext(ctx).Error("failed to write search response",
			observability.String("format", resp.Format),
			observability.Error(err),
		)
		if !c.Writer.Written() {
			s.fail(c, err)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	readiness := s.health.Readiness(c.Request.Context())
	c.JSON(http.StatusOK, s.health.BuildReport(s.cfg, s.auth.Status(), readiness))
}

func (s *Server) handleAuthStatus(c *gin.Context) {
	presented := c.GetHeader(s.auth.HeaderName()) != ""
	c.JSON(http.StatusOK, health.NewAuthDiagnostics(s.auth.Status(), presented, s.cfg.Environment))
}

func (s *Server) handleAPIConfig(c *gin.Context) {
	state := ""
	if s.breakerState != nil {
		state = s.breakerState()
	}
	c.JSON(http.StatusOK, health.NewAPIConfig(s.cfg, s.auth.Status(), state))
}

func (s *Server) handleConfigSources(c *gin.Context) {
	c.JSON(http.StatusOK, health.NewConfigSources(s.cfg, s.auth.Status()))
}
