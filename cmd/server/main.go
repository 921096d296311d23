package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/annel0/fractal-terrain/internal/api"
	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/annel0/fractal-terrain/internal/cache"
	"github.com/annel0/fractal-terrain/internal/config"
	"github.com/annel0/fractal-terrain/internal/eventbus"
	"github.com/annel0/fractal-terrain/internal/logging"
	"github.com/annel0/fractal-terrain/internal/observability"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/service"
	"github.com/annel0/fractal-terrain/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или TERRAIN_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.Configure(cfg.Logging.Dir, logging.ParseLevel(cfg.Logging.Level))
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🏔  Запуск сервиса генерации рельефа...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	renderCache, err := newCache(cfg.Cache)
	if err != nil {
		logging.Error("❌ Ошибка инициализации кеша: %v", err)
		os.Exit(1)
	}
	defer renderCache.Close()

	var presets *storage.PresetStore
	if cfg.Storage.InMemory {
		presets, err = storage.NewInMemoryPresetStore()
	} else {
		presets, err = storage.NewPresetStore(cfg.Storage.Path)
	}
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища пресетов: %v", err)
		os.Exit(1)
	}
	defer presets.Close()

	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка инициализации шины событий: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	authManager, err := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logging.Error("❌ Ошибка инициализации JWT: %v", err)
		os.Exit(1)
	}
	if cfg.Auth.Secret == "" {
		logging.Warn("auth.jwt_secret не задан, используется случайный ключ")
	}

	svc := service.NewRenderService(service.Options{
		Renderer: render.NewRenderer(cfg.Render.Workers),
		Cache:    renderCache,
		CacheTTL: cfg.Cache.TTL,
		Presets:  presets,
		Bus:      bus,
		Metrics:  service.NewMetrics(reg),
		Timeout:  cfg.Render.Timeout,
		MaxSize:  cfg.Render.MaxSize,
	})

	gin.SetMode(gin.ReleaseMode)
	restAddr := ":" + strconv.Itoa(cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:     restAddr,
		Service:  svc,
		Cache:    renderCache,
		Auth:     authManager,
		Registry: reg,
		Defaults: api.Defaults{NoiseSize: cfg.Render.DefaultNoiseSz},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("✅ Сервис запущен")
	logging.Info("   🌐 REST API: http://localhost%s", restAddr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restAddr)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", restAddr)

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ REST API остановился с ошибкой: %v", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Сервис остановлен")
}

func newCache(cfg config.CacheConfig) (cache.RenderCache, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			MaxTTL:   cfg.TTL,
		})
	case "none":
		return cache.Nop{}, nil
	default:
		return cache.NewMemoryCache(cfg.MaxEntries)
	}
}

func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.Backend == "nats" {
		return eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	}
	return eventbus.NewMemoryBus(cfg.Buffer), nil
}
