package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/fractal-terrain/internal/displace"
	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/fractal"
	"github.com/annel0/fractal-terrain/internal/render"
	"github.com/annel0/fractal-terrain/internal/util"
)

const maxPresetName = 64

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrStoreClosed    = errors.New("preset store is closed")
)

// Preset именованный набор параметров рендера.
// Заполнен ровно один блок настроек, соответствующий Engine.
type Preset struct {
	Name      string                  `json:"name" yaml:"name"`
	Engine    string                  `json:"engine" yaml:"engine"`
	Size      int                     `json:"size" yaml:"size"`
	Seed      *uint64                 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Displace  *displace.Settings      `json:"displacement,omitempty" yaml:"displacement,omitempty"`
	Noise     *fractal.Settings       `json:"noise,omitempty" yaml:"noise,omitempty"`
	Reference *util.ReferenceSettings `json:"reference,omitempty" yaml:"reference,omitempty"`
	CreatedAt time.Time               `json:"created_at" yaml:"created_at"`
}

// ValidName проверяет имя пресета: 1..64 символа из [a-z0-9_-]
func ValidName(name string) error {
	if name == "" || len(name) > maxPresetName {
		return field.InvalidSettings("name", fmt.Sprintf("must be 1..%d characters", maxPresetName))
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return field.InvalidSettings("name", fmt.Sprintf("unexpected character %q", r))
		}
	}
	return nil
}

// Validate проверяет пресет целиком: имя, движок и его настройки.
// Размер проверяется так же, как при рендере.
func (p *Preset) Validate() error {
	if err := ValidName(p.Name); err != nil {
		return err
	}

	blocks := 0
	for _, set := range []bool{p.Displace != nil, p.Noise != nil, p.Reference != nil} {
		if set {
			blocks++
		}
	}
	if blocks != 1 {
		return field.InvalidSettings("engine", "exactly one settings block is required")
	}

	switch p.Engine {
	case render.EngineDisplacement:
		if p.Displace == nil {
			return field.InvalidSettings("displacement", "missing settings for engine")
		}
		if err := displace.ValidateSize(p.Size); err != nil {
			return err
		}
		return p.Displace.Validate()
	case render.EngineNoise:
		if p.Noise == nil {
			return field.InvalidSettings("noise", "missing settings for engine")
		}
		if err := checkPositive(p.Size); err != nil {
			return err
		}
		return p.Noise.Validate()
	case render.EngineReference:
		if p.Reference == nil {
			return field.InvalidSettings("reference", "missing settings for engine")
		}
		if err := checkPositive(p.Size); err != nil {
			return err
		}
		return p.Reference.Validate()
	default:
		return field.InvalidSettings("engine", fmt.Sprintf("unknown engine %q", p.Engine))
	}
}

func checkPositive(size int) error {
	if size <= 0 {
		return field.InvalidSize(size, "must be positive")
	}
	return field.CheckCells(size)
}
