package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит параметры подключения к Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	MaxTTL   time.Duration
	PoolSize int
}

// RedisCache реализует RenderCache поверх Redis.
// Изображения хранятся в формате Encode (zstd).
type RedisCache struct {
	client *redis.Client
	config RedisConfig
	logger *logging.Logger

	requests int64
	hits     int64
	misses   int64
	stored   int64 // байт записано с момента старта
}

// NewRedisCache подключается к Redis и проверяет соединение.
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := logging.GetCacheLogger()
	logger.Info("Redis cache initialized: %s", config.Addr)
	return &RedisCache{client: rdb, config: config, logger: logger}, nil
}

// Get получает изображение по ключу.
func (r *RedisCache) Get(ctx context.Context, key string) (*field.Gray, error) {
	atomic.AddInt64(&r.requests, 1)

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.misses, 1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		atomic.AddInt64(&r.misses, 1)
		r.logger.Error("Redis Get error for key %s: %v", key, err)
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	img, err := Decode(val)
	if err != nil {
		// битая запись ведёт себя как промах
		atomic.AddInt64(&r.misses, 1)
		r.logger.Warn("Dropping corrupt entry %s: %v", key, err)
		_ = r.client.Del(ctx, key).Err()
		return nil, ErrCacheMiss
	}

	atomic.AddInt64(&r.hits, 1)
	return img, nil
}

// Set сохраняет изображение. TTL ограничен сверху MaxTTL.
func (r *RedisCache) Set(ctx context.Context, key string, img *field.Gray, ttl time.Duration) error {
	if ttl == 0 || ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	data := Encode(img)
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.logger.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	atomic.AddInt64(&r.stored, int64(len(data)))
	return nil
}

// Delete удаляет ключ из кеша.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Error closing Redis connection: %v", err)
		return err
	}
	r.logger.Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает текущие метрики кеша.
func (r *RedisCache) GetMetrics() *CacheMetrics {
	total := atomic.LoadInt64(&r.requests)
	hits := atomic.LoadInt64(&r.hits)

	m := &CacheMetrics{
		TotalRequests: total,
		CacheHits:     hits,
		CacheMisses:   atomic.LoadInt64(&r.misses),
		HitRatio:      hitRatio(hits, total),
		StoredMB:      float64(atomic.LoadInt64(&r.stored)) / (1 << 20),
		LastUpdate:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if n, err := r.client.DBSize(ctx).Result(); err == nil {
		m.TotalKeys = n
	}
	return m
}
