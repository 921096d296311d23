package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/dgraph-io/ristretto"
)

type memoryEntry struct {
	img     *field.Gray
	expires time.Time // нулевое значение — без истечения
}

// Ёмкость по умолчанию, если maxEntries <= 0
const defaultMaxEntries = 1024

// MemoryCache внутрипроцессный кеш поверх ristretto.
// Каждая запись стоит 1, так что MaxCost равен числу записей.
type MemoryCache struct {
	mu     sync.RWMutex
	store  *ristretto.Cache
	closed bool
	now    func() time.Time

	requests int64
	hits     int64
	misses   int64
	bytes    int64
}

// NewMemoryCache создаёт кеш на maxEntries записей (<=0 — defaultMaxEntries).
func NewMemoryCache(maxEntries int) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	m := &MemoryCache{now: time.Now}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(maxEntries) * 10,
		MaxCost:            int64(maxEntries),
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
		OnExit: func(val interface{}) {
			if entry, ok := val.(*memoryEntry); ok {
				atomic.AddInt64(&m.bytes, -int64(len(entry.img.Pix)))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	m.store = store
	return m, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (*field.Gray, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	atomic.AddInt64(&m.requests, 1)
	if m.closed {
		atomic.AddInt64(&m.misses, 1)
		return nil, ErrCacheMiss
	}

	val, ok := m.store.Get(key)
	if !ok {
		atomic.AddInt64(&m.misses, 1)
		return nil, ErrCacheMiss
	}
	entry := val.(*memoryEntry)
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		m.store.Del(key)
		m.store.Wait()
		atomic.AddInt64(&m.misses, 1)
		return nil, ErrCacheMiss
	}

	atomic.AddInt64(&m.hits, 1)
	return cloneGray(entry.img), nil
}

// Set сохраняет копию изображения. Запись видна сразу после возврата,
// но при заполненном кеше политика вытеснения может её отклонить.
func (m *MemoryCache) Set(_ context.Context, key string, img *field.Gray, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl < 0 {
		ttl = 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}

	entry := &memoryEntry{img: cloneGray(img)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}

	size := int64(len(entry.img.Pix))
	atomic.AddInt64(&m.bytes, size)
	if !m.store.SetWithTTL(key, entry, 1, ttl) {
		atomic.AddInt64(&m.bytes, -size)
		return nil
	}
	m.store.Wait()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}

	m.store.Del(key)
	m.store.Wait()
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	m.closed = true
	m.store.Close()
	return nil
}

func (m *MemoryCache) GetMetrics() *CacheMetrics {
	requests := atomic.LoadInt64(&m.requests)
	hits := atomic.LoadInt64(&m.hits)

	out := &CacheMetrics{
		TotalRequests: requests,
		CacheHits:     hits,
		CacheMisses:   atomic.LoadInt64(&m.misses),
		HitRatio:      hitRatio(hits, requests),
		StoredMB:      float64(atomic.LoadInt64(&m.bytes)) / (1 << 20),
		LastUpdate:    m.now(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.closed {
		rm := m.store.Metrics
		out.TotalKeys = int64(rm.KeysAdded()) - int64(rm.KeysEvicted())
	}
	return out
}

func cloneGray(img *field.Gray) *field.Gray {
	out := field.NewGray(img.Size)
	copy(out.Pix, img.Pix)
	return out
}

// Nop кеш, который ничего не хранит. Используется при backend: none.
type Nop struct{}

func (Nop) Get(context.Context, string) (*field.Gray, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, string, *field.Gray, time.Duration) error {
	return nil
}
func (Nop) Delete(context.Context, string) error { return nil }
func (Nop) Close() error                         { return nil }
func (Nop) GetMetrics() *CacheMetrics            { return &CacheMetrics{LastUpdate: time.Now()} }
