package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psyjobs/jobspy-api/internal/observability"
)

// Metrics records request count, latency and size per matched route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		m.IncActive()
		defer m.DecActive()

		start := time.Now()
		c.Next()

		m.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}
