package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/fractal-terrain/internal/cache"
	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/eventbus"
	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/fractal"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/storage"
	"github.com/annel0/fractal-terrain/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBus запоминает опубликованные события синхронно
type recordingBus struct {
	mu     sync.Mutex
	events []*eventbus.Envelope
}

func (b *recordingBus) Publish(_ context.Context, ev *eventbus.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, eventbus.Filter, eventbus.Handler) (eventbus.Subscription, error) {
	return nil, nil
}

func (b *recordingBus) Metrics() eventbus.Stats { return eventbus.Stats{} }
func (b *recordingBus) Close() error            { return nil }

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.EventType
	}
	return out
}

type fixture struct {
	svc     *RenderService
	cache   *cache.MemoryCache
	bus     *recordingBus
	metrics *Metrics
	store   *storage.PresetStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewInMemoryPresetStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	memCache, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	t.Cleanup(func() { memCache.Close() })

	f := &fixture{
		cache:   memCache,
		bus:     &recordingBus{},
		metrics: NewMetrics(prometheus.NewRegistry()),
		store:   store,
	}
	f.svc = NewRenderService(Options{
		Renderer: render.NewRenderer(2),
		Cache:    f.cache,
		CacheTTL: time.Minute,
		Presets:  store,
		Bus:      f.bus,
		Metrics:  f.metrics,
		Timeout:  10 * time.Second,
		MaxSize:  513,
	})
	return f
}

func seedPtr(v uint64) *uint64 { return &v }

func displaceRequest(seed *uint64) Request {
	return Request{
		Engine:   render.EngineDisplacement,
		Size:     65,
		Seed:     seed,
		Displace: &displace.Settings{Roughness: 12, MountainSize: 15, Contrast: 100},
	}
}

func TestRender_CachesSeededRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Render(ctx, displaceRequest(seedPtr(42)))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, uint64(42), first.Seed)
	assert.Equal(t, 65, first.Field.Size)

	second, err := f.svc.Render(ctx, displaceRequest(seedPtr(42)))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.True(t, first.Field.Equal(second.Field))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.cacheHits.WithLabelValues(render.EngineDisplacement)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.renders.WithLabelValues(render.EngineDisplacement, "ok")))
	assert.Equal(t, []string{eventbus.TypeRenderCompleted, eventbus.TypeRenderCompleted}, f.bus.types())
}

func TestRender_MatchesDirectEngine(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Render(context.Background(), displaceRequest(seedPtr(7)))
	require.NoError(t, err)

	direct, err := render.RenderDisplacement(context.Background(), 65, displace.Settings{Roughness: 12, MountainSize: 15, Contrast: 100}, seedPtr(7))
	require.NoError(t, err)
	assert.True(t, direct.Equal(res.Field))
}

func TestRender_RandomSeedNotCached(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Render(context.Background(), displaceRequest(nil))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, int64(0), f.cache.GetMetrics().TotalKeys)
}

func TestRender_NoCache(t *testing.T) {
	f := newFixture(t)
	req := displaceRequest(seedPtr(1))
	req.NoCache = true

	_, err := f.svc.Render(context.Background(), req)
	require.NoError(t, err)
	res, err := f.svc.Render(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestRender_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		kind string
	}{
		{"bad displacement size", Request{
			Engine: render.EngineDisplacement, Size: 100, Seed: seedPtr(1),
			Displace: &displace.Settings{Contrast: 100},
		}, KindInvalidSize},
		{"over service limit", Request{
			Engine: render.EngineNoise, Size: 1025, Seed: seedPtr(1),
			Noise: &fractal.Settings{Blends: 2, MaxBright: 100},
		}, KindInvalidSize},
		{"unknown engine", Request{
			Engine: "voronoi", Size: 64, Noise: &fractal.Settings{MaxBright: 100},
		}, KindInvalidSettings},
		{"missing block", Request{Engine: render.EngineNoise, Size: 64}, KindInvalidSettings},
		{"mismatched block", Request{
			Engine: render.EngineNoise, Size: 64,
			Reference: &util.ReferenceSettings{Kind: util.ReferencePerlin, Scale: 16, Octaves: 2, Persistence: 0.5, MaxBright: 100},
		}, KindInvalidSettings},
		{"zero brightness", Request{
			Engine: render.EngineNoise, Size: 64, Seed: seedPtr(1),
			Noise: &fractal.Settings{Blends: 2, MaxBright: 0},
		}, KindInvalidSettings},
		{"huge blends", Request{
			Engine: render.EngineNoise, Size: 64, Seed: seedPtr(1),
			Noise: &fractal.Settings{Blends: 100, MaxBright: 100},
		}, KindNumericDegenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Render(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, Classify(err))
			assert.Equal(t, []string{eventbus.TypeRenderRejected}, f.bus.types())
		})
	}
}

func TestRender_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Render(ctx, Request{
		Engine: render.EngineNoise, Size: 256, Seed: seedPtr(3),
		Noise: &fractal.Settings{Blends: 4, MaxBright: 100},
	})
	require.Error(t, err)
	assert.Equal(t, KindCanceled, Classify(err))
}

func TestPresets_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := &storage.Preset{
		Name:   "plains",
		Engine: render.EngineNoise,
		Size:   64,
		Seed:   seedPtr(11),
		Noise:  &fractal.Settings{Blends: 3, Mode: fractal.ModeCosine, MaxBright: 100},
	}
	require.NoError(t, f.svc.SavePreset(ctx, p, "alice"))

	list, err := f.svc.ListPresets()
	require.NoError(t, err)
	require.Len(t, list, 1)

	res, err := f.svc.RenderPreset(ctx, "plains", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Seed)

	direct, err := render.RenderNoise(ctx, 64, *p.Noise, seedPtr(11))
	require.NoError(t, err)
	assert.True(t, direct.Equal(res.Field))

	override, err := f.svc.RenderPreset(ctx, "plains", seedPtr(12))
	require.NoError(t, err)
	assert.Equal(t, uint64(12), override.Seed)

	require.NoError(t, f.svc.DeletePreset(ctx, "plains", "alice"))
	_, err = f.svc.RenderPreset(ctx, "plains", nil)
	assert.Equal(t, KindNotFound, Classify(err))

	assert.Equal(t, []string{
		eventbus.TypePresetSaved,
		eventbus.TypeRenderCompleted,
		eventbus.TypeRenderCompleted,
		eventbus.TypePresetDeleted,
	}, f.bus.types())
}

func TestPresets_SizeLimit(t *testing.T) {
	f := newFixture(t)
	p := &storage.Preset{
		Name:     "huge",
		Engine:   render.EngineDisplacement,
		Size:     1025,
		Displace: &displace.Settings{Contrast: 100},
	}
	err := f.svc.SavePreset(context.Background(), p, "")
	assert.ErrorIs(t, err, field.ErrInvalidSize)
}

func TestPresets_Disabled(t *testing.T) {
	svc := NewRenderService(Options{})
	_, err := svc.ListPresets()
	assert.ErrorIs(t, err, ErrPresetsDisabled)

	// без кеша, шины и метрик рендер всё равно работает
	res, err := svc.Render(context.Background(), displaceRequest(seedPtr(5)))
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindNotFound, Classify(storage.ErrPresetNotFound))
	assert.Equal(t, KindInternal, Classify(assert.AnError))
	assert.Equal(t, KindNumericDegenerate, Classify(field.NumericDegenerate("x", "y")))
}
