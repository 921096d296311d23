package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const keyPrefix = "render"

// Key строит ключ кеша для рендера.
// Настройки сериализуются в JSON и хешируются, поэтому одинаковые
// параметры всегда дают один и тот же ключ.
func Key(engine string, size int, seed uint64, settings any) (string, error) {
	if engine == "" {
		return "", ErrInvalidKey
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return fmt.Sprintf("%s:%s:%d:%d:%016x", keyPrefix, engine, size, seed, xxhash.Sum64(raw)), nil
}
