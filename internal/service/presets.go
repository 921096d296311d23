package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/fractal-terrain/internal/eventbus"
	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/storage"
)

var ErrPresetsDisabled = errors.New("preset storage is not configured")

// SavePreset проверяет и сохраняет пресет; subject попадает в событие
func (s *RenderService) SavePreset(ctx context.Context, p *storage.Preset, subject string) error {
	if s.presets == nil {
		return ErrPresetsDisabled
	}
	if s.maxSize > 0 && p.Size > s.maxSize {
		return field.InvalidSize(p.Size, fmt.Sprintf("exceeds service limit %d", s.maxSize))
	}
	if err := s.presets.Save(p); err != nil {
		return err
	}

	s.logger.Info("preset %s saved by %q", p.Name, subject)
	s.publish(ctx, eventbus.TypePresetSaved, 6, eventbus.PresetChanged{
		Name:    p.Name,
		Engine:  p.Engine,
		Subject: subject,
	})
	return nil
}

// GetPreset возвращает пресет по имени
func (s *RenderService) GetPreset(name string) (*storage.Preset, error) {
	if s.presets == nil {
		return nil, ErrPresetsDisabled
	}
	return s.presets.Load(name)
}

// ListPresets возвращает все пресеты
func (s *RenderService) ListPresets() ([]*storage.Preset, error) {
	if s.presets == nil {
		return nil, ErrPresetsDisabled
	}
	return s.presets.List()
}

// DeletePreset удаляет пресет
func (s *RenderService) DeletePreset(ctx context.Context, name, subject string) error {
	if s.presets == nil {
		return ErrPresetsDisabled
	}
	if err := s.presets.Delete(name); err != nil {
		return err
	}

	s.logger.Info("preset %s deleted by %q", name, subject)
	s.publish(ctx, eventbus.TypePresetDeleted, 6, eventbus.PresetChanged{Name: name, Subject: subject})
	return nil
}

// RenderPreset рендерит сохранённый пресет. seed, если задан, заменяет сид пресета.
func (s *RenderService) RenderPreset(ctx context.Context, name string, seed *uint64) (*Result, error) {
	p, err := s.GetPreset(name)
	if err != nil {
		return nil, err
	}

	req := Request{
		Engine:    p.Engine,
		Size:      p.Size,
		Seed:      p.Seed,
		Displace:  p.Displace,
		Noise:     p.Noise,
		Reference: p.Reference,
		Preset:    p.Name,
	}
	if seed != nil {
		req.Seed = seed
	}
	return s.Render(ctx, req)
}
