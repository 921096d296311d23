package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/annel0/fractal-terrain/internal/logging"
	"github.com/dgraph-io/badger/v3"
)

const presetPrefix = "preset:"

// PresetStore представляет собой хранилище пресетов рендера поверх BadgerDB
type PresetStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	now     func() time.Time
	logger  *logging.Logger
}

// NewPresetStore открывает хранилище в <dataPath>/presets
func NewPresetStore(dataPath string) (*PresetStore, error) {
	dbPath := filepath.Join(dataPath, "presets")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return openPresetStore(opts, dbPath)
}

// NewInMemoryPresetStore создаёт хранилище без записи на диск
func NewInMemoryPresetStore() (*PresetStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openPresetStore(opts, "")
}

func openPresetStore(opts badger.Options, dbPath string) (*PresetStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logger := logging.GetStorageLogger()
	if dbPath == "" {
		logger.Info("Хранилище пресетов открыто в памяти")
	} else {
		logger.Info("Хранилище пресетов открыто: %s", dbPath)
	}

	return &PresetStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Close закрывает хранилище данных
func (ps *PresetStore) Close() error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if !ps.isReady {
		return nil
	}

	ps.isReady = false
	ps.logger.Info("Хранилище пресетов закрыто")
	return ps.db.Close()
}

// Save проверяет и сохраняет пресет. Существующий пресет с тем же именем
// перезаписывается, время создания сохраняется.
func (ps *PresetStore) Save(p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if !ps.isReady {
		return ErrStoreClosed
	}

	key := []byte(presetPrefix + p.Name)
	err := ps.db.Update(func(txn *badger.Txn) error {
		stored := *p
		stored.CreatedAt = ps.now().UTC()

		// при перезаписи сохраняем исходное время создания
		if item, err := txn.Get(key); err == nil {
			var prev Preset
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err == nil && !prev.CreatedAt.IsZero() {
				stored.CreatedAt = prev.CreatedAt
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("ошибка чтения пресета: %w", err)
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("ошибка сериализации пресета: %w", err)
		}
		p.CreatedAt = stored.CreatedAt
		return txn.Set(key, data)
	})
	if err != nil {
		ps.logger.Error("Не удалось сохранить пресет %s: %v", p.Name, err)
		return err
	}
	ps.logger.Debug("Пресет %s сохранён (%s, %d)", p.Name, p.Engine, p.Size)
	return nil
}

// Load загружает пресет по имени
func (ps *PresetStore) Load(name string) (*Preset, error) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if !ps.isReady {
		return nil, ErrStoreClosed
	}

	var p Preset
	err := ps.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(presetPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrPresetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки пресета %s: %w", name, err)
	}
	return &p, nil
}

// List возвращает все пресеты, отсортированные по имени
func (ps *PresetStore) List() ([]*Preset, error) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if !ps.isReady {
		return nil, ErrStoreClosed
	}

	presets := make([]*Preset, 0)
	err := ps.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(presetPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var p Preset
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("ошибка десериализации %s: %w", it.Item().Key(), err)
			}
			presets = append(presets, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// Delete удаляет пресет. Возвращает ErrPresetNotFound, если его нет.
func (ps *PresetStore) Delete(name string) error {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if !ps.isReady {
		return ErrStoreClosed
	}

	key := []byte(presetPrefix + name)
	err := ps.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrPresetNotFound
	}
	if err != nil {
		ps.logger.Error("Не удалось удалить пресет %s: %v", name, err)
		return err
	}
	ps.logger.Debug("Пресет %s удалён", name)
	return nil
}
