package displace

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/kernel"
)

// generator хранит состояние одного рендера. Поле и маска живут только
// внутри вызова Generate и наружу отдаются лишь при успехе.
type generator struct {
	size int
	grid *field.Grid
	mask *field.Mask
	rng  *rand.Rand
}

// Generate строит карту высот diamond-square размера size×size.
// Все значения результата лежат в [-1,1].
func Generate(ctx context.Context, size int, s Settings, rng *rand.Rand) (*field.Grid, error) {
	g, err := run(ctx, size, s, rng)
	if err != nil {
		return nil, err
	}
	if s.PostSmooth {
		return kernel.SmoothGrid(g.grid), nil
	}
	return g.grid, nil
}

func run(ctx context.Context, size int, s Settings, rng *rand.Rand) (*generator, error) {
	if err := ValidateSize(size); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	g := &generator{
		size: size,
		grid: field.NewGrid(size),
		mask: field.NewMask(size),
		rng:  rng,
	}

	maxHeight := float64(s.MountainSize) / 20.0
	last := size - 1
	g.fill(0, 0, clamp(rng.Float64()*maxHeight))
	g.fill(0, last, clamp(rng.Float64()*maxHeight))
	g.fill(last, 0, clamp(rng.Float64()*maxHeight))
	g.fill(last, last, clamp(rng.Float64()*maxHeight))

	decay := float64(s.Roughness) / 20.0
	level := maxHeight
	for width, repeats := last, 1; width > 1; width, repeats = width/2, repeats*4 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("diamond-square cancelled at width %d: %w", width, err)
		}

		g.sweep(width, repeats, func(left, top int) { g.square(left, top, width, level) })
		g.sweep(width, repeats, func(left, top int) { g.diamonds(left, top, width, level) })

		level *= decay
	}

	if !g.mask.Complete() {
		return nil, fmt.Errorf("diamond-square left %d of %d cells unfilled", size*size-g.mask.Count(), size*size)
	}
	return g, nil
}

// sweep обходит repeats квадратов шириной width построчно
func (g *generator) sweep(width, repeats int, visit func(left, top int)) {
	left, top := 0, 0
	for i := 0; i < repeats; i++ {
		visit(left, top)

		left += width
		if left == g.size-1 {
			left = 0
			top += width
		}
	}
}

// square заполняет центр квадрата средним четырёх углов с возмущением
func (g *generator) square(left, top, width int, level float64) {
	half := width / 2
	cx, cy := left+half, top+half
	if g.mask.Filled(cx, cy) {
		return
	}

	sum := g.grid.At(left, top) + g.grid.At(left+width, top) +
		g.grid.At(left+width, top+width) + g.grid.At(left, top+width)

	g.fill(cx, cy, g.perturb(sum/4, level))
}

// diamonds заполняет четыре середины рёбер квадрата
func (g *generator) diamonds(left, top, width int, level float64) {
	half := width / 2

	g.diamond(left+half, top, half, level)
	g.diamond(left+width, top+half, half, level)
	g.diamond(left+half, top+width, half, level)
	g.diamond(left, top+half, half, level)
}

// diamond усредняет соседей на расстоянии half по осям. Соседи за краем
// поля не учитываются (без заворачивания).
func (g *generator) diamond(x, y, half int, level float64) {
	if g.mask.Filled(x, y) {
		return
	}

	var sum float64
	var total int
	add := func(nx, ny int) {
		if nx < 0 || ny < 0 || nx >= g.size || ny >= g.size || !g.mask.Filled(nx, ny) {
			return
		}
		sum += g.grid.At(nx, ny)
		total++
	}
	add(x-half, y)
	add(x, y-half)
	add(x+half, y)
	add(x, y+half)

	if total == 0 {
		return
	}
	g.fill(x, y, g.perturb(sum/float64(total), level))
}

// perturb добавляет к base случайное смещение |u*level| со случайным знаком
func (g *generator) perturb(base, level float64) float64 {
	change := g.rng.Float64() * level
	if g.rng.IntN(100) < 50 {
		change = -change
	}
	return clamp(base + change)
}

func (g *generator) fill(x, y int, v float64) {
	g.grid.Set(x, y, v)
	g.mask.Mark(x, y)
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// ToGray переводит карту высот в полутона с учётом контраста:
// pixel = round(v/(contrast/100)*127 + 127).
func ToGray(g *field.Grid, s Settings) (*field.Gray, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	multiplier := float64(s.Contrast) / 100.0

	return field.MapGray(g, func(v float64) float64 {
		return v/multiplier*127 + 127
	}), nil
}

// Render строит карту высот и сразу переводит её в полутона
func Render(ctx context.Context, size int, s Settings, rng *rand.Rand) (*field.Gray, error) {
	grid, err := Generate(ctx, size, s, rng)
	if err != nil {
		return nil, err
	}
	return ToGray(grid, s)
}
