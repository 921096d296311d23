package service

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/fractal-terrain/internal/cache"
	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/eventbus"
	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/fractal"
	"github.com/annel0/fractal-terrain/internal/logging"
	"github.com/annel0/fractal-terrain/internal/observability"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/storage"
	"github.com/annel0/fractal-terrain/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const eventSource = "terrain-service"

// Request запрос на рендер. Заполняется блок настроек, соответствующий Engine.
type Request struct {
	Engine    string
	Size      int
	Seed      *uint64
	Displace  *displace.Settings
	Noise     *fractal.Settings
	Reference *util.ReferenceSettings

	NoCache bool
	Preset  string // имя пресета, если запрос построен из него
}

// Result готовое изображение и сведения о том, как оно получено
type Result struct {
	Engine   string
	Size     int
	Seed     uint64
	Cached   bool
	Duration time.Duration
	Field    *field.Gray
}

// PresetRepository хранилище пресетов
type PresetRepository interface {
	Save(p *storage.Preset) error
	Load(name string) (*storage.Preset, error)
	List() ([]*storage.Preset, error)
	Delete(name string) error
}

// Options зависимости и лимиты RenderService. Нулевые Cache и Bus допустимы.
type Options struct {
	Renderer *render.Renderer
	Cache    cache.RenderCache
	CacheTTL time.Duration
	Presets  PresetRepository
	Bus      eventbus.EventBus
	Metrics  *Metrics
	Timeout  time.Duration
	MaxSize  int
}

// RenderService оборачивает движки рендера кешем, таймаутом, метриками и событиями
type RenderService struct {
	renderer *render.Renderer
	cache    cache.RenderCache
	cacheTTL time.Duration
	presets  PresetRepository
	bus      eventbus.EventBus
	metrics  *Metrics
	timeout  time.Duration
	maxSize  int
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewRenderService создаёт сервис
func NewRenderService(opts Options) *RenderService {
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer(0)
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	return &RenderService{
		renderer: opts.Renderer,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		presets:  opts.Presets,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		maxSize:  opts.MaxSize,
		tracer:   observability.Tracer(),
		logger:   logging.GetRenderLogger(),
	}
}

// settings возвращает блок настроек для движка запроса
func (r *Request) settings() (any, error) {
	var (
		s   any
		set int
	)
	if r.Displace != nil {
		s, set = r.Displace, set+1
	}
	if r.Noise != nil {
		s, set = r.Noise, set+1
	}
	if r.Reference != nil {
		s, set = r.Reference, set+1
	}
	if set != 1 {
		return nil, field.InvalidSettings("engine", "exactly one settings block is required")
	}

	switch r.Engine {
	case render.EngineDisplacement:
		if r.Displace == nil {
			return nil, field.InvalidSettings("displacement", "missing settings for engine")
		}
	case render.EngineNoise:
		if r.Noise == nil {
			return nil, field.InvalidSettings("noise", "missing settings for engine")
		}
	case render.EngineReference:
		if r.Reference == nil {
			return nil, field.InvalidSettings("reference", "missing settings for engine")
		}
	default:
		return nil, field.InvalidSettings("engine", fmt.Sprintf("unknown engine %q", r.Engine))
	}
	return s, nil
}

// Render выполняет запрос. Запросы с явным сидом кешируются.
func (s *RenderService) Render(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "render."+req.Engine, trace.WithAttributes(
		attribute.String("terrain.engine", req.Engine),
		attribute.Int("terrain.size", req.Size),
	))
	defer span.End()

	res, err := s.render(ctx, req, span)
	if err != nil {
		kind := Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		s.count(req.Engine, kind)
		s.publish(ctx, eventbus.TypeRenderRejected, 2, eventbus.RenderRejected{
			Engine: req.Engine,
			Size:   req.Size,
			Kind:   kind,
			Reason: err.Error(),
		})
		s.logger.Debug("render %s size=%d rejected (%s): %v", req.Engine, req.Size, kind, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("terrain.seed", int64(res.Seed)),
		attribute.Bool("terrain.cached", res.Cached),
	)
	s.count(req.Engine, "ok")
	s.publish(ctx, eventbus.TypeRenderCompleted, 3, eventbus.RenderCompleted{
		Engine:     res.Engine,
		Size:       res.Size,
		Seed:       res.Seed,
		Cached:     res.Cached,
		Duration:   res.Duration,
		PresetName: req.Preset,
	})
	return res, nil
}

func (s *RenderService) render(ctx context.Context, req Request, span trace.Span) (*Result, error) {
	settings, err := req.settings()
	if err != nil {
		return nil, err
	}
	if s.maxSize > 0 && req.Size > s.maxSize {
		return nil, field.InvalidSize(req.Size, fmt.Sprintf("exceeds service limit %d", s.maxSize))
	}

	var seed uint64
	cacheable := req.Seed != nil && !req.NoCache
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed = util.RandomSeed()
	}

	var key string
	if cacheable {
		key, err = cache.Key(req.Engine, req.Size, seed, settings)
		if err != nil {
			return nil, err
		}
		if img, err := s.cache.Get(ctx, key); err == nil {
			span.AddEvent("cache hit")
			if s.metrics != nil {
				s.metrics.cacheHits.WithLabelValues(req.Engine).Inc()
			}
			return &Result{Engine: req.Engine, Size: req.Size, Seed: seed, Cached: true, Field: img}, nil
		} else if !cache.IsCacheMiss(err) {
			s.logger.Warn("cache get %s: %v", key, err)
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.metrics != nil {
		s.metrics.inflight.Inc()
		defer s.metrics.inflight.Dec()
	}

	start := time.Now()
	var img *field.Gray
	switch req.Engine {
	case render.EngineDisplacement:
		img, err = s.renderer.Displacement(ctx, req.Size, *req.Displace, &seed)
	case render.EngineNoise:
		img, err = s.renderer.Noise(ctx, req.Size, *req.Noise, &seed)
	case render.EngineReference:
		img, err = s.renderer.Reference(ctx, req.Size, *req.Reference, &seed)
	}
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.duration.WithLabelValues(req.Engine).Observe(elapsed.Seconds())
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, img, s.cacheTTL); err != nil {
			s.logger.Warn("cache set %s: %v", key, err)
		}
	}

	return &Result{Engine: req.Engine, Size: req.Size, Seed: seed, Duration: elapsed, Field: img}, nil
}

func (s *RenderService) count(engine, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.renders.WithLabelValues(engine, outcome).Inc()
}

// publish отправляет событие; ошибки шины только логируются
func (s *RenderService) publish(ctx context.Context, eventType string, priority int, payload any) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventSource, eventType, priority, payload)
	if err != nil {
		s.logger.Warn("event %s: %v", eventType, err)
		return
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		ev.Metadata = map[string]string{"trace_id": span.SpanContext().TraceID().String()}
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("publish %s: %v", eventType, err)
	}
}
