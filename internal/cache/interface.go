package cache

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/fractal-terrain/internal/field"
)

// RenderCache хранит готовые изображения рельефа по ключу рендера.
//
// Использование:
//
//	key, _ := cache.Key("noise", 200, seed, settings)
//	img, err := c.Get(ctx, key)
//	if cache.IsCacheMiss(err) { ... }
//	err = c.Set(ctx, key, img, 10*time.Minute)
type RenderCache interface {
	// Get возвращает изображение по ключу.
	// Возвращает ErrCacheMiss если ключ не найден или истёк.
	Get(ctx context.Context, key string) (*field.Gray, error)

	// Set сохраняет изображение с указанным TTL.
	// TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, img *field.Gray, ttl time.Duration) error

	// Delete удаляет ключ из кеша.
	Delete(ctx context.Context, key string) error

	// Close освобождает ресурсы кеша.
	Close() error

	// GetMetrics возвращает снимок метрик кеша.
	GetMetrics() *CacheMetrics
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	TotalKeys  int64     `json:"total_keys"`
	StoredMB   float64   `json:"stored_mb"`
	LastUpdate time.Time `json:"last_update"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInvalidKey = errors.New("invalid key")
	ErrCorrupt    = errors.New("corrupt cache entry")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// hitRatio считает долю попаданий
func hitRatio(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
