package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestLogger_SetsTraceID(t *testing.T) {
	r := gin.New()
	r.Use(NewRequestLogger().Handler())

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(TraceIDKey)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Trace-Id"))
}

func TestPrometheusMiddleware_CountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test", reg)

	r := gin.New()
	r.Use(pm.Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	pm.RegisterMetricsEndpoint(r, reg)

	for _, path := range []string{"/ok", "/bad", "/bad"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/bad", "400")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.reqInflight))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_request_duration_seconds"))
}

func TestRequireJWT(t *testing.T) {
	m, err := auth.NewManager(auth.GenerateSecureSecret(), "test", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.PUT("/edit", RequireJWT(m, false), func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c))
	})
	r.DELETE("/admin", RequireJWT(m, true), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	userToken, err := m.Generate("alice", false)
	require.NoError(t, err)
	adminToken, err := m.Generate("root", true)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		status int
	}{
		{"no header", http.MethodPut, "/edit", "", http.StatusUnauthorized},
		{"garbage", http.MethodPut, "/edit", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", http.MethodPut, "/edit", "Basic " + userToken, http.StatusUnauthorized},
		{"user edit", http.MethodPut, "/edit", "Bearer " + userToken, http.StatusOK},
		{"user admin", http.MethodDelete, "/admin", "Bearer " + userToken, http.StatusForbidden},
		{"admin", http.MethodDelete, "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPut, "/edit", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "alice", w.Body.String())
}
