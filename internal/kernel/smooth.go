package kernel

import "github.com/annel0/fractal-terrain/internal/field"

// Веса фильтра 3×3: диагонали 1/16, стороны 1/8, центр 1/4.
const (
	cornerWeight = 1.0 / 16
	sideWeight   = 1.0 / 8
	centerWeight = 1.0 / 4
)

// Smooth возвращает взвешенное среднее окрестности 3×3 ячейки (x,y)
// с заворачиванием индексов по тору.
func Smooth(g *field.Grid, x, y int) float64 {
	x1 := g.Wrap(x)
	y1 := g.Wrap(y)
	x0 := g.Wrap(x1 - 1)
	y0 := g.Wrap(y1 - 1)
	x2 := g.Wrap(x1 + 1)
	y2 := g.Wrap(y1 + 1)

	corners := (g.At(x0, y0) + g.At(x2, y0) + g.At(x0, y2) + g.At(x2, y2)) * cornerWeight
	sides := (g.At(x0, y1) + g.At(x2, y1) + g.At(x1, y0) + g.At(x1, y2)) * sideWeight
	center := g.At(x1, y1) * centerWeight

	return corners + sides + center
}

// SmoothGrid строит новое сглаженное поле; исходное не изменяется.
func SmoothGrid(g *field.Grid) *field.Grid {
	out := field.NewGrid(g.Size)
	for y := 0; y < g.Size; y++ {
		for x := 0; x < g.Size; x++ {
			out.Set(x, y, Smooth(g, x, y))
		}
	}
	return out
}
