package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/annel0/fractal-terrain/internal/cache"
	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/service"
	"github.com/annel0/fractal-terrain/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	rs   *RestServer
	auth *auth.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := storage.NewInMemoryPresetStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	memCache, err := cache.NewMemoryCache(8)
	require.NoError(t, err)
	t.Cleanup(func() { memCache.Close() })
	svc := service.NewRenderService(service.Options{
		Renderer: render.NewRenderer(2),
		Cache:    memCache,
		CacheTTL: time.Minute,
		Presets:  store,
		Metrics:  service.NewMetrics(reg),
		Timeout:  10 * time.Second,
		MaxSize:  513,
	})

	m, err := auth.NewManager(auth.GenerateSecureSecret(), "test", time.Hour)
	require.NoError(t, err)

	rs := NewRestServer(Config{
		Service:  svc,
		Cache:    memCache,
		Auth:     m,
		Registry: reg,
		Defaults: Defaults{DisplacementSize: 65, NoiseSize: 64},
	})
	return &testServer{rs: rs, auth: m}
}

func (ts *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.rs.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) token(t *testing.T, admin bool) string {
	t.Helper()
	tok, err := ts.auth.Generate("tester", admin)
	require.NoError(t, err)
	return tok
}

func decodeRender(t *testing.T, w *httptest.ResponseRecorder) (RenderResponse, []byte) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	pix, err := base64.StdEncoding.DecodeString(resp.Pixels)
	require.NoError(t, err)
	return resp, pix
}

func TestRenderDisplacement_JSON(t *testing.T) {
	ts := newTestServer(t)
	body := `{"size":65,"seed":42,"settings":{"roughness":12,"mountain_size":15,"contrast":100}}`

	resp, pix := decodeRender(t, ts.do(t, http.MethodPost, "/api/render/displacement", body, ""))
	assert.Equal(t, render.EngineDisplacement, resp.Engine)
	assert.Equal(t, 65, resp.Size)
	assert.Equal(t, uint64(42), resp.Seed)
	assert.False(t, resp.Cached)
	assert.Len(t, pix, 65*65)

	seed := uint64(42)
	direct, err := render.RenderDisplacement(context.Background(), 65, displace.Settings{Roughness: 12, MountainSize: 15, Contrast: 100}, &seed)
	require.NoError(t, err)
	assert.Equal(t, direct.Pix, pix)

	again, _ := decodeRender(t, ts.do(t, http.MethodPost, "/api/render/displacement", body, ""))
	assert.True(t, again.Cached)
}

func TestRenderNoise_DefaultSizeAndRaw(t *testing.T) {
	ts := newTestServer(t)
	body := `{"seed":3,"settings":{"blends":3,"interpolation":"cosine","max_bright":100}}`

	w := ts.do(t, http.MethodPost, "/api/render/noise?format=raw", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "64", w.Header().Get("X-Terrain-Size"))
	assert.Equal(t, "3", w.Header().Get("X-Terrain-Seed"))
	assert.Len(t, w.Body.Bytes(), 64*64)
}

func TestRenderReference_PNG(t *testing.T) {
	ts := newTestServer(t)
	body := `{"size":32,"seed":1,"settings":{"kind":"opensimplex","scale":16,"octaves":3,"persistence":0.5,"max_bright":100}}`

	w := ts.do(t, http.MethodPost, "/api/render/reference?format=png", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestRender_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"bad json", "/api/render/noise", `{`, http.StatusBadRequest, "bad_request"},
		{"bad displacement size", "/api/render/displacement",
			`{"size":100,"settings":{"contrast":100}}`, http.StatusBadRequest, service.KindInvalidSize},
		{"zero contrast", "/api/render/displacement",
			`{"size":65,"settings":{"contrast":0}}`, http.StatusBadRequest, service.KindInvalidSettings},
		{"unknown mode", "/api/render/noise",
			`{"settings":{"blends":2,"interpolation":"spline","max_bright":100}}`, http.StatusBadRequest, "bad_request"},
		{"degenerate blends", "/api/render/noise",
			`{"settings":{"blends":80,"max_bright":100}}`, http.StatusUnprocessableEntity, service.KindNumericDegenerate},
		{"bad format", "/api/render/noise?format=bmp",
			`{"seed":1,"settings":{"blends":1,"max_bright":100}}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestPresets_Flow(t *testing.T) {
	ts := newTestServer(t)
	preset := `{"engine":"noise","size":64,"seed":9,"noise":{"blends":3,"interpolation":"cubic","max_bright":100}}`

	// без токена
	w := ts.do(t, http.MethodPut, "/api/presets/hills", preset, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPut, "/api/presets/hills", preset, ts.token(t, false))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/presets", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = ts.do(t, http.MethodGet, "/api/presets/hills", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got storage.Preset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "hills", got.Name)
	assert.Equal(t, "noise", got.Engine)

	resp, pix := decodeRender(t, ts.do(t, http.MethodPost, "/api/presets/hills/render", "", ""))
	assert.Equal(t, uint64(9), resp.Seed)
	assert.Len(t, pix, 64*64)

	override, _ := decodeRender(t, ts.do(t, http.MethodPost, "/api/presets/hills/render", `{"seed":10}`, ""))
	assert.Equal(t, uint64(10), override.Seed)

	// удаление только для админа
	w = ts.do(t, http.MethodDelete, "/api/presets/hills", "", ts.token(t, false))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/presets/hills", "", ts.token(t, true))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/presets/hills", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/presets/hills", "", ts.token(t, true))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPresets_InvalidRejected(t *testing.T) {
	ts := newTestServer(t)
	preset := `{"engine":"displacement","size":100,"displacement":{"contrast":100}}`

	w := ts.do(t, http.MethodPut, "/api/presets/ridge", preset, ts.token(t, false))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/api/presets/Bad%20Name", `{"engine":"noise","size":64,"noise":{"max_bright":100}}`, ts.token(t, false))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Contains(t, health, "memory")
	assert.Contains(t, health, "cache")

	ts.do(t, http.MethodPost, "/api/render/noise", `{"seed":1,"settings":{"blends":1,"max_bright":100}}`, "")

	w = ts.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "terrain_renders_total")
	assert.Contains(t, w.Body.String(), "terrain_api_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodOptions, "/api/render/noise", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartStop(t *testing.T) {
	rs := NewRestServer(Config{Port: "127.0.0.1:0"})

	errCh := make(chan error, 1)
	go func() { errCh <- rs.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rs.Stop(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStopBeforeStart(t *testing.T) {
	rs := NewRestServer(Config{Port: "127.0.0.1:0"})
	require.NoError(t, rs.Stop(context.Background()))
	assert.NoError(t, rs.Start())
}
