package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/annel0/fractal-terrain/internal/cache"
	"github.com/annel0/fractal-terrain/internal/logging"
	"github.com/annel0/fractal-terrain/internal/middleware"
	"github.com/annel0/fractal-terrain/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API сервер рендера
type RestServer struct {
	router     *gin.Engine
	service    *service.RenderService
	cache      cache.RenderCache
	auth       *auth.Manager
	port       string
	metrics    *ServerMetrics
	defaults   Defaults
	httpServer *http.Server
	logger     *logging.Logger
}

// Defaults размеры, подставляемые при size == 0
type Defaults struct {
	DisplacementSize int
	NoiseSize        int
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string                 // адрес для запуска сервера, например ":8088"
	Service  *service.RenderService // сервис рендера
	Cache    cache.RenderCache      // для метрик кеша в /health, может быть nil
	Auth     *auth.Manager          // проверка JWT для изменения пресетов
	Registry *prometheus.Registry   // регистр для HTTP метрик и /metrics
	Defaults Defaults
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.Defaults.DisplacementSize == 0 {
		config.Defaults.DisplacementSize = 513
	}
	if config.Defaults.NoiseSize == 0 {
		config.Defaults.NoiseSize = 200
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("terrain_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware("terrain_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	server := &RestServer{
		router:   router,
		service:  config.Service,
		cache:    config.Cache,
		auth:     config.Auth,
		port:     config.Port,
		metrics:  NewServerMetrics(),
		defaults: config.Defaults,
		logger:   logging.GetAPILogger(),
	}
	server.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")

	renderGroup := api.Group("/render")
	{
		renderGroup.POST("/displacement", rs.handleRenderDisplacement)
		renderGroup.POST("/noise", rs.handleRenderNoise)
		renderGroup.POST("/reference", rs.handleRenderReference)
	}

	presets := api.Group("/presets")
	{
		presets.GET("", rs.handleListPresets)
		presets.GET("/:name", rs.handleGetPreset)
		presets.POST("/:name/render", rs.handleRenderPreset)

		// Изменение пресетов требует JWT, удаление только для админов
		presets.PUT("/:name", middleware.RequireJWT(rs.auth, false), rs.handlePutPreset)
		presets.DELETE("/:name", middleware.RequireJWT(rs.auth, true), rs.handleDeletePreset)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// Handler возвращает http.Handler сервера (используется в тестах)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокируется до Stop.
// После Stop сразу возвращает nil.
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает сервер, дожидаясь завершения активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
