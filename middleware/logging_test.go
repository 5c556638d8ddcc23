package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"sessiongate/middleware"
)

func doRequest(headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoggingMiddlewareTraceID(t *testing.T) {
	t.Run("uses traceparent trace id", func(t *testing.T) {
		w := doRequest(map[string]string{
			middleware.TraceParentHeader: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		})
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Header().Get(middleware.TraceIDHeader))
	})

	t.Run("falls back to X-Trace-ID", func(t *testing.T) {
		w := doRequest(map[string]string{
			middleware.TraceIDHeader: "abc123",
		})
		assert.Equal(t, "abc123", w.Header().Get(middleware.TraceIDHeader))
	})

	t.Run("generates a trace id when absent", func(t *testing.T) {
		w := doRequest(nil)
		assert.Len(t, w.Header().Get(middleware.TraceIDHeader), 32)
	})
}
