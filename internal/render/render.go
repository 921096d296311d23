package render

import (
	"context"
	"time"

	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/fractal"
	"github.com/annel0/fractal-terrain/internal/logging"
	"github.com/annel0/fractal-terrain/internal/util"
)

// Имена движков
const (
	EngineDisplacement = "displacement"
	EngineNoise        = "noise"
	EngineReference    = "reference"
)

// Renderer точка входа для внешних вызывающих: настройки на входе,
// полутоновое поле size×size на выходе. Состояния между вызовами нет.
type Renderer struct {
	workers int
	logger  *logging.Logger
}

// NewRenderer создаёт рендерер; workers<=0 означает по числу CPU
func NewRenderer(workers int) *Renderer {
	return &Renderer{
		workers: workers,
		logger:  logging.GetRenderLogger(),
	}
}

var defaultRenderer = NewRenderer(0)

// RenderDisplacement строит изображение diamond-square. Если seed == nil,
// сид выбирается случайно.
func RenderDisplacement(ctx context.Context, size int, s displace.Settings, seed *uint64) (*field.Gray, error) {
	return defaultRenderer.Displacement(ctx, size, s, seed)
}

// RenderNoise строит изображение фрактального шума
func RenderNoise(ctx context.Context, size int, s fractal.Settings, seed *uint64) (*field.Gray, error) {
	return defaultRenderer.Noise(ctx, size, s, seed)
}

// RenderReference строит изображение библиотечного шума
func RenderReference(ctx context.Context, size int, s util.ReferenceSettings, seed *uint64) (*field.Gray, error) {
	return defaultRenderer.Reference(ctx, size, s, seed)
}

// Displacement см. RenderDisplacement
func (r *Renderer) Displacement(ctx context.Context, size int, s displace.Settings, seed *uint64) (*field.Gray, error) {
	sd := r.resolve(seed)
	start := time.Now()

	out, err := displace.Render(ctx, size, s, util.NewRand(sd))
	if err != nil {
		r.logger.Debug("displacement size=%d seed=%d rejected: %v", size, sd, err)
		return nil, err
	}
	r.logger.Debug("displacement size=%d seed=%d done in %s", size, sd, time.Since(start))
	return out, nil
}

// Noise см. RenderNoise
func (r *Renderer) Noise(ctx context.Context, size int, s fractal.Settings, seed *uint64) (*field.Gray, error) {
	sd := r.resolve(seed)
	start := time.Now()

	out, err := fractal.Render(ctx, size, s, util.NewRand(sd), r.workers)
	if err != nil {
		r.logger.Debug("noise size=%d seed=%d mode=%s rejected: %v", size, sd, s.Mode, err)
		return nil, err
	}
	r.logger.Debug("noise size=%d seed=%d mode=%s done in %s", size, sd, s.Mode, time.Since(start))
	return out, nil
}

// Reference см. RenderReference
func (r *Renderer) Reference(ctx context.Context, size int, s util.ReferenceSettings, seed *uint64) (*field.Gray, error) {
	sd := r.resolve(seed)

	grid, err := util.ReferenceField(ctx, size, s, sd)
	if err != nil {
		r.logger.Debug("reference size=%d seed=%d rejected: %v", size, sd, err)
		return nil, err
	}
	return util.ReferenceGray(grid, s), nil
}

func (r *Renderer) resolve(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	sd := util.RandomSeed()
	r.logger.Debug("seed not provided, using %d", sd)
	return sd
}
