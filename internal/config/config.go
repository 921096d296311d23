package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервиса генерации рельефа.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Render    RenderConfig    `yaml:"render"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // пусто — только консоль
}

type RenderConfig struct {
	Workers        int           `yaml:"workers"` // 0 — по числу CPU
	Timeout        time.Duration `yaml:"timeout"`
	MaxSize        int           `yaml:"max_size"`
	DefaultNoiseSz int           `yaml:"default_noise_size"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory | redis | none
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
}

type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type EventBusConfig struct {
	Backend   string `yaml:"backend"` // memory | nats
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type AuthConfig struct {
	Secret   string        `yaml:"jwt_secret"` // base64, не короче 32 байт
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Render: RenderConfig{
			Timeout:        30 * time.Second,
			MaxSize:        1025,
			DefaultNoiseSz: 200,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 64,
		},
		Storage: StorageConfig{Path: "data"},
		EventBus: EventBusConfig{
			Backend:   "memory",
			Stream:    "TERRAIN",
			Retention: 24,
			Buffer:    256,
		},
		Auth: AuthConfig{
			Issuer:   "fractal-terrain",
			TokenTTL: 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{ServiceName: "fractal-terrain"},
	}
}

// GetRESTPort возвращает REST порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "TERRAIN_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.Render.MaxSize <= 0 {
		return fmt.Errorf("render.max_size must be positive")
	}
	if c.Render.Timeout < 0 {
		return fmt.Errorf("render.timeout must not be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for redis backend")
	}
	switch c.EventBus.Backend {
	case "memory", "nats":
	default:
		return fmt.Errorf("unknown eventbus backend %q", c.EventBus.Backend)
	}
	if c.EventBus.Backend == "nats" && c.EventBus.URL == "" {
		return fmt.Errorf("eventbus.url is required for nats backend")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV TERRAIN_CONFIG;
// если и он пуст, возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TERRAIN_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
