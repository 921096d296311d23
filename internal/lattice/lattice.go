package lattice

import (
	"math"
	"math/rand/v2"

	"github.com/annel0/fractal-terrain/internal/field"
)

// Gradient решётка двумерных градиентов: две параллельные компоненты.
// Векторы хранятся ненормированными и нормируются только при чтении.
type Gradient struct {
	X *field.Grid
	Y *field.Grid
}

// SeedScalar заполняет скалярную решётку значениями Uniform[0,1)
func SeedScalar(size int, rng *rand.Rand) *field.Grid {
	g := field.NewGrid(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.Set(x, y, rng.Float64())
		}
	}
	return g
}

// SeedGradient заполняет градиентную решётку. Каждая компонента берётся из
// Uniform[0,1) и с вероятностью 1/2 меняет знак.
func SeedGradient(size int, rng *rand.Rand) *Gradient {
	gr := &Gradient{X: field.NewGrid(size), Y: field.NewGrid(size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			gr.X.Set(x, y, signed(rng))
			gr.Y.Set(x, y, signed(rng))
		}
	}
	return gr
}

func signed(rng *rand.Rand) float64 {
	v := rng.Float64()
	if rng.Float64() < 0.5 {
		v = -v
	}
	return v
}

// Size размер решётки
func (gr *Gradient) Size() int {
	return gr.X.Size
}

// Unit возвращает градиент ячейки (x,y), нормированный до единичной длины.
// Индексы заворачиваются по тору; нулевой вектор остаётся нулевым.
func (gr *Gradient) Unit(x, y int) (float64, float64) {
	x = gr.X.Wrap(x)
	y = gr.X.Wrap(y)

	gx := gr.X.At(x, y)
	gy := gr.Y.At(x, y)
	hyp := math.Hypot(gx, gy)
	if hyp == 0 {
		return 0, 0
	}
	return gx / hyp, gy / hyp
}

// Set задаёт ненормированный градиент ячейки
func (gr *Gradient) Set(x, y int, gx, gy float64) {
	gr.X.Set(x, y, gx)
	gr.Y.Set(x, y, gy)
}

// Lattices набор решёток одного рендера шума
type Lattices struct {
	Scalar   *field.Grid
	Gradient *Gradient
}

// Seed заполняет обе решётки из одного потока: сначала скалярную,
// затем градиентную.
func Seed(size int, rng *rand.Rand) *Lattices {
	scalar := SeedScalar(size, rng)
	return &Lattices{
		Scalar:   scalar,
		Gradient: SeedGradient(size, rng),
	}
}
