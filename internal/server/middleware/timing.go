package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ProcessTimeHeader carries the handling time in seconds.
const ProcessTimeHeader = "X-Process-Time"

// timingWriter stamps the process time header just before the response
// headers are committed.
type timingWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timingWriter) stamp() {
	if w.stamped || w.ResponseWriter.Written() {
		return
	}
	w.stamped = true
	w.Header().Set(ProcessTimeHeader, FormatSeconds(time.Since(w.start)))
}

func (w *timingWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timingWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// ProcessTime adds X-Process-Time to every response.
func ProcessTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		tw := &timingWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Writer = tw

		c.Next()

		tw.stamp()
	}
}

// FormatSeconds renders d as fractional seconds.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}
