package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/fractal"
	"github.com/annel0/fractal-terrain/internal/middleware"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/service"
	"github.com/annel0/fractal-terrain/internal/storage"
	"github.com/annel0/fractal-terrain/internal/util"
	"github.com/gin-gonic/gin"
)

// DisplacementRequest тело POST /api/render/displacement
type DisplacementRequest struct {
	Size     int               `json:"size"`
	Seed     *uint64           `json:"seed"`
	Settings displace.Settings `json:"settings"`
	NoCache  bool              `json:"no_cache"`
}

// NoiseRequest тело POST /api/render/noise
type NoiseRequest struct {
	Size     int              `json:"size"`
	Seed     *uint64          `json:"seed"`
	Settings fractal.Settings `json:"settings"`
	NoCache  bool             `json:"no_cache"`
}

// ReferenceRequest тело POST /api/render/reference
type ReferenceRequest struct {
	Size     int                    `json:"size"`
	Seed     *uint64                `json:"seed"`
	Settings util.ReferenceSettings `json:"settings"`
	NoCache  bool                   `json:"no_cache"`
}

// RenderResponse JSON ответ рендера; Pixels — size*size байт построчно, base64
type RenderResponse struct {
	Engine     string  `json:"engine"`
	Size       int     `json:"size"`
	Seed       uint64  `json:"seed"`
	Cached     bool    `json:"cached"`
	DurationMs float64 `json:"duration_ms"`
	Pixels     string  `json:"pixels"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (rs *RestServer) handleRenderDisplacement(c *gin.Context) {
	var req DisplacementRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Size == 0 {
		req.Size = rs.defaults.DisplacementSize
	}
	rs.render(c, service.Request{
		Engine:   render.EngineDisplacement,
		Size:     req.Size,
		Seed:     req.Seed,
		Displace: &req.Settings,
		NoCache:  req.NoCache,
	})
}

func (rs *RestServer) handleRenderNoise(c *gin.Context) {
	var req NoiseRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Size == 0 {
		req.Size = rs.defaults.NoiseSize
	}
	rs.render(c, service.Request{
		Engine:  render.EngineNoise,
		Size:    req.Size,
		Seed:    req.Seed,
		Noise:   &req.Settings,
		NoCache: req.NoCache,
	})
}

func (rs *RestServer) handleRenderReference(c *gin.Context) {
	var req ReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Size == 0 {
		req.Size = rs.defaults.NoiseSize
	}
	rs.render(c, service.Request{
		Engine:    render.EngineReference,
		Size:      req.Size,
		Seed:      req.Seed,
		Reference: &req.Settings,
		NoCache:   req.NoCache,
	})
}

func (rs *RestServer) render(c *gin.Context, req service.Request) {
	res, err := rs.service.Render(c.Request.Context(), req)
	if err != nil {
		rs.writeError(c, err)
		return
	}
	rs.writeResult(c, res)
}

// writeResult отдаёт результат в формате ?format=json|raw|png
func (rs *RestServer) writeResult(c *gin.Context, res *service.Result) {
	c.Header("X-Terrain-Seed", strconv.FormatUint(res.Seed, 10))

	switch c.DefaultQuery("format", "json") {
	case "raw":
		c.Header("X-Terrain-Size", strconv.Itoa(res.Size))
		c.Data(http.StatusOK, "application/octet-stream", res.Field.Pix)
	case "png":
		img := &image.Gray{
			Pix:    res.Field.Pix,
			Stride: res.Field.Size,
			Rect:   image.Rect(0, 0, res.Field.Size, res.Field.Size),
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			rs.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	case "json":
		c.JSON(http.StatusOK, RenderResponse{
			Engine:     res.Engine,
			Size:       res.Size,
			Seed:       res.Seed,
			Cached:     res.Cached,
			DurationMs: float64(res.Duration.Microseconds()) / 1000,
			Pixels:     base64.StdEncoding.EncodeToString(res.Field.Pix),
		})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "format must be json, raw or png"})
	}
}

func (rs *RestServer) handleListPresets(c *gin.Context) {
	presets, err := rs.service.ListPresets()
	if err != nil {
		rs.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets, "total": len(presets)})
}

func (rs *RestServer) handleGetPreset(c *gin.Context) {
	p, err := rs.service.GetPreset(c.Param("name"))
	if err != nil {
		rs.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// presetRenderRequest необязательное тело POST /api/presets/:name/render
type presetRenderRequest struct {
	Seed *uint64 `json:"seed"`
}

func (rs *RestServer) handleRenderPreset(c *gin.Context) {
	var req presetRenderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	res, err := rs.service.RenderPreset(c.Request.Context(), c.Param("name"), req.Seed)
	if err != nil {
		rs.writeError(c, err)
		return
	}
	rs.writeResult(c, res)
}

func (rs *RestServer) handlePutPreset(c *gin.Context) {
	var p storage.Preset
	if !bindJSON(c, &p) {
		return
	}
	p.Name = c.Param("name")

	if err := rs.service.SavePreset(c.Request.Context(), &p, middleware.Subject(c)); err != nil {
		rs.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, &p)
}

func (rs *RestServer) handleDeletePreset(c *gin.Context) {
	if err := rs.service.DeletePreset(c.Request.Context(), c.Param("name"), middleware.Subject(c)); err != nil {
		rs.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleHealth обрабатывает health check
func (rs *RestServer) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status": "ok",
		"uptime": rs.metrics.GetUptime(),
		"memory": rs.metrics.GetDetailedMemoryStats(),
	}
	if cpu, err := rs.metrics.GetCPUUsage(); err == nil {
		resp["cpu_percent"] = cpu
	}
	if rs.cache != nil {
		resp["cache"] = rs.cache.GetMetrics()
	}
	c.JSON(http.StatusOK, resp)
}

// bindJSON разбирает тело запроса, при ошибке отвечает 400
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Неверный формат запроса: " + err.Error(), Kind: "bad_request"})
		return false
	}
	return true
}

// writeError переводит ошибку сервиса в HTTP статус
func (rs *RestServer) writeError(c *gin.Context, err error) {
	kind := service.Classify(err)

	var status int
	switch kind {
	case service.KindInvalidSize, service.KindInvalidSettings:
		status = http.StatusBadRequest
	case service.KindNumericDegenerate:
		status = http.StatusUnprocessableEntity
	case service.KindTimeout:
		status = http.StatusGatewayTimeout
	case service.KindCanceled:
		status = 499 // клиент закрыл соединение
	case service.KindNotFound:
		status = http.StatusNotFound
	default:
		switch {
		case errors.Is(err, service.ErrPresetsDisabled):
			status = http.StatusServiceUnavailable
		case errors.Is(err, auth.ErrInvalidToken):
			status = http.StatusUnauthorized
		default:
			status = http.StatusInternalServerError
		}
	}

	if status >= 500 {
		rs.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, ErrorResponse{Error: "Внутренняя ошибка сервера", Kind: kind})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}
