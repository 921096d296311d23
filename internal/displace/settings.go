package displace

import (
	"fmt"

	"github.com/annel0/fractal-terrain/internal/field"
)

// PresetSizes поддерживаемые размеры поля (2^k+1)
var PresetSizes = []int{129, 257, 513, 1025}

// Settings параметры генерации diamond-square.
//
// Roughness управляет затуханием возмущений между уровнями (level *= Roughness/20):
// чем меньше значение, тем глаже рельеф.
// MountainSize задаёт начальный масштаб возмущений (MountainSize/20).
// Contrast влияет только на итоговое изображение.
type Settings struct {
	Roughness    int  `json:"roughness" yaml:"roughness"`
	MountainSize int  `json:"mountain_size" yaml:"mountain_size"`
	Contrast     int  `json:"contrast" yaml:"contrast"`
	PostSmooth   bool `json:"post_smooth" yaml:"post_smooth"`
}

// Validate проверяет параметры до начала вычислений
func (s Settings) Validate() error {
	if s.Contrast <= 0 {
		return field.InvalidSettings("contrast", fmt.Sprintf("must be positive, got %d", s.Contrast))
	}
	if s.Roughness < 0 {
		return field.InvalidSettings("roughness", fmt.Sprintf("must not be negative, got %d", s.Roughness))
	}
	if s.MountainSize < 0 {
		return field.InvalidSettings("mountain_size", fmt.Sprintf("must not be negative, got %d", s.MountainSize))
	}
	return nil
}

// ValidateSize требует size = 2^k+1, k>=1
func ValidateSize(size int) error {
	if size < 3 {
		return field.InvalidSize(size, "diamond-square needs size 2^k+1 with k>=1")
	}
	n := size - 1
	if n&(n-1) != 0 {
		return field.InvalidSize(size, "diamond-square needs size 2^k+1")
	}
	return field.CheckCells(size)
}
