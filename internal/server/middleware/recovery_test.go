package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)

	router := gin.New()
	router.Use(RequestID(), Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	t.Run("recovers from panic", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Server Error", body["error"])
		assert.Equal(t, "/panic", body["path"])

		entries := logs.FilterMessage("panic recovered").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "test panic", fields["error"])
		assert.NotEmpty(t, fields["request_id"])
		assert.NotEmpty(t, fields["stack"])
	})

	t.Run("normal request passes through", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})
}

func TestRecoveryWithConfig_Respond(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)

	var recovered any
	router := gin.New()
	router.Use(RecoveryWithConfig(RecoveryConfig{
		Logger:    zap.New(core),
		OmitStack: true,
		Respond: func(c *gin.Context, rec any) {
			recovered = rec
			c.JSON(http.StatusTeapot, gin.H{"custom": true})
		},
	}))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "boom", recovered)
	assert.JSONEq(t, `{"custom":true}`, w.Body.String())

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "stack")
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(Recovery(nil))
	router.GET("/abort", func(c *gin.Context) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(router, httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}
