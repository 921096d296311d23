package fractal

import (
	"math"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/kernel"
	"github.com/annel0/fractal-terrain/internal/lattice"
)

// Sampler вычисляет значение шума в произвольной точке решётки.
// Не изменяет решётки и безопасен для параллельного чтения.
type Sampler struct {
	mode     Mode
	scalar   *field.Grid
	gradient *lattice.Gradient
}

// NewSampler готовит сэмплер. При PreSmooth скалярная решётка сглаживается
// один раз заранее: это даёт те же значения, что и сглаживание каждого угла.
func NewSampler(l *lattice.Lattices, s Settings) *Sampler {
	scalar := l.Scalar
	if s.PreSmooth && s.Mode != ModeGradient {
		scalar = kernel.SmoothGrid(scalar)
	}
	return &Sampler{
		mode:     s.Mode,
		scalar:   scalar,
		gradient: l.Gradient,
	}
}

// Sample значение шума в точке (x,y)
func (sp *Sampler) Sample(x, y float64) float64 {
	switch sp.mode {
	case ModeCosine:
		return sp.bilinear(x, y, kernel.Cosine)
	case ModeCubic:
		return sp.bicubic(x, y)
	case ModeGradient:
		return sp.perlin(x, y)
	default:
		return sp.bilinear(x, y, kernel.Linear)
	}
}

func split(v float64) (int, float64) {
	f := math.Floor(v)
	return int(f), v - f
}

// bilinear интерполирует четыре угла ячейки скалярной решётки
func (sp *Sampler) bilinear(x, y float64, blend func(a, b, t float64) float64) float64 {
	xi, fx := split(x)
	yi, fy := split(y)

	g := sp.scalar
	x1, y1 := g.Wrap(xi), g.Wrap(yi)
	x2, y2 := g.Wrap(x1+1), g.Wrap(y1+1)

	top := blend(g.At(x1, y1), g.At(x2, y1), fx)
	bottom := blend(g.At(x1, y2), g.At(x2, y2), fx)
	return blend(top, bottom, fy)
}

// bicubic интерполирует окрестность 4×4: сначала строки по x, затем столбец по y
func (sp *Sampler) bicubic(x, y float64) float64 {
	xi, fx := split(x)
	yi, fy := split(y)

	g := sp.scalar
	var rows [4]float64
	for j := 0; j < 4; j++ {
		yy := g.Wrap(yi - 1 + j)
		var row [4]float64
		for i := 0; i < 4; i++ {
			row[i] = g.At(g.Wrap(xi-1+i), yy)
		}
		rows[j] = kernel.CubicRow(row, fx)
	}
	return kernel.CubicRow(rows, fy)
}

// perlin классический градиентный шум: скалярные произведения единичных
// градиентов углов на смещения к точке, смешанные весами 3t²-2t³.
func (sp *Sampler) perlin(x, y float64) float64 {
	xi, fx := split(x)
	yi, fy := split(y)

	gr := sp.gradient
	corner := func(cx, cy int, dx, dy float64) float64 {
		gx, gy := gr.Unit(cx, cy)
		return kernel.Dot(gx, gy, dx, dy)
	}

	s := corner(xi, yi, fx, fy)
	t := corner(xi+1, yi, fx-1, fy)
	u := corner(xi, yi+1, fx, fy-1)
	v := corner(xi+1, yi+1, fx-1, fy-1)

	return kernel.GradientBlend(s, t, u, v, fx, fy)
}
