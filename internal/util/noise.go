package util

import (
	"context"
	"fmt"
	"strings"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// ReferenceKind выбирает библиотечный генератор шума
type ReferenceKind string

const (
	ReferencePerlin      ReferenceKind = "perlin"
	ReferenceOpenSimplex ReferenceKind = "opensimplex"
)

// ReferenceSettings параметры эталонного библиотечного шума.
// Используется для сравнения с собственными движками.
type ReferenceSettings struct {
	Kind        ReferenceKind `json:"kind" yaml:"kind"`
	Scale       float64       `json:"scale" yaml:"scale"`             // размер детали в пикселях
	Octaves     int           `json:"octaves" yaml:"octaves"`         // 1..16
	Persistence float64       `json:"persistence" yaml:"persistence"` // затухание амплитуды (0,1]
	MaxBright   int           `json:"max_bright" yaml:"max_bright"`
}

// Validate проверяет параметры до начала вычислений
func (s ReferenceSettings) Validate() error {
	switch ReferenceKind(strings.ToLower(string(s.Kind))) {
	case ReferencePerlin, ReferenceOpenSimplex:
	default:
		return field.InvalidSettings("kind", fmt.Sprintf("unknown reference noise %q", s.Kind))
	}
	if s.Scale <= 0 {
		return field.InvalidSettings("scale", "must be positive")
	}
	if s.Octaves < 1 || s.Octaves > 16 {
		return field.InvalidSettings("octaves", "must be in 1..16")
	}
	if s.Persistence <= 0 || s.Persistence > 1 {
		return field.InvalidSettings("persistence", "must be in (0,1]")
	}
	if s.MaxBright <= 0 {
		return field.InvalidSettings("max_bright", "must be positive")
	}
	return nil
}

// noise2D функция шума со значениями примерно в [-1,1]
type noise2D func(x, y float64) float64

// ReferenceField строит поле [0,1] библиотечным шумом.
func ReferenceField(ctx context.Context, size int, s ReferenceSettings, seed uint64) (*field.Grid, error) {
	if err := field.CheckCells(size); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sample := newReferenceSampler(s, int64(seed))
	out := field.NewGrid(size)
	for y := 0; y < size; y++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reference noise cancelled at row %d: %w", y, err)
		}
		for x := 0; x < size; x++ {
			v := sample(float64(x)/s.Scale, float64(y)/s.Scale)
			out.Set(x, y, (v+1)/2)
		}
	}
	return out, nil
}

// ReferenceGray переводит поле эталонного шума в 8-битное изображение
func ReferenceGray(g *field.Grid, s ReferenceSettings) *field.Gray {
	brightness := 100.0 / float64(s.MaxBright)
	return field.MapGray(g, func(v float64) float64 {
		return 255 * v * brightness
	})
}

func newReferenceSampler(s ReferenceSettings, seed int64) noise2D {
	// Сумма амплитуд для нормировки в [-1,1]
	var total float64
	amp := 1.0
	for i := 0; i < s.Octaves; i++ {
		total += amp
		amp *= s.Persistence
	}

	if ReferenceKind(strings.ToLower(string(s.Kind))) == ReferencePerlin {
		// alpha делит амплитуду на каждой октаве, beta умножает частоту
		p := perlin.NewPerlin(1/s.Persistence, 2, int32(s.Octaves), seed)
		return func(x, y float64) float64 {
			return p.Noise2D(x, y) / total
		}
	}

	sn := opensimplex.New(seed)
	return func(x, y float64) float64 {
		var sum float64
		amp, freq := 1.0, 1.0
		for i := 0; i < s.Octaves; i++ {
			sum += amp * sn.Eval2(x*freq, y*freq)
			amp *= s.Persistence
			freq *= 2
		}
		return sum / total
	}
}
