package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessTime(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(ProcessTime())
	router.GET("/json", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/string", func(c *gin.Context) { c.String(http.StatusCreated, "made") })
	router.GET("/status", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	router.GET("/abort", func(c *gin.Context) { c.AbortWithStatus(http.StatusNoContent) })

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/json", http.StatusOK},
		{"/string", http.StatusCreated},
		{"/status", http.StatusAccepted},
		{"/abort", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			header := w.Header().Get(ProcessTimeHeader)
			require.NotEmpty(t, header)

			seconds, err := strconv.ParseFloat(header, 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, seconds, 0.0)
		})
	}
}

func TestProcessTime_MeasuresHandler(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(ProcessTime())
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(20 * time.Millisecond)
		c.String(http.StatusOK, "done")
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/slow", nil))

	seconds, err := strconv.ParseFloat(w.Header().Get(ProcessTimeHeader), 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seconds, 0.02)
}

func TestFormatSeconds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.500000", FormatSeconds(1500*time.Millisecond))
	assert.Equal(t, "0.000250", FormatSeconds(250*time.Microsecond))
}
