package fractal

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/kernel"
	"github.com/annel0/fractal-terrain/internal/lattice"
	"golang.org/x/sync/errgroup"
)

// Generate строит поле фрактального шума size×size. Решётки заполняются из rng
// до начала выборки, поэтому результат не зависит от числа воркеров.
func Generate(ctx context.Context, size int, s Settings, rng *rand.Rand, workers int) (*field.Grid, error) {
	if err := field.CheckCells(size); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sampler := NewSampler(lattice.Seed(size, rng), s)
	grid, err := Accumulate(ctx, sampler, size, Octaves(s), workers)
	if err != nil {
		return nil, err
	}

	if s.PostSmooth {
		grid = kernel.SmoothGrid(grid)
	}
	return grid, nil
}

// Accumulate суммирует октавы в каждой точке поля. Строки считаются
// параллельно на workers горутинах.
func Accumulate(ctx context.Context, sp *Sampler, size int, octaves []Octave, workers int) (*field.Grid, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := field.NewGrid(size)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for y := 0; y < size; y++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return fmt.Errorf("noise cancelled at row %d: %w", y, err)
			}
			for x := 0; x < size; x++ {
				var value float64
				for _, o := range octaves {
					scale := float64(o.Scale)
					value += sp.Sample(float64(x)/scale, float64(y)/scale) / o.Divisor
				}
				out.Set(x, y, value)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToGray переводит поле шума в полутона. Для ModeGradient значение лежит
// примерно в [-1,1] и сдвигается к середине шкалы до умножения на яркость.
func ToGray(g *field.Grid, s Settings) (*field.Gray, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	brightness := 100.0 / float64(s.MaxBright)

	if s.Mode == ModeGradient {
		return field.MapGray(g, func(v float64) float64 {
			return (v*127 + 127) * brightness
		}), nil
	}
	return field.MapGray(g, func(v float64) float64 {
		return 255 * v * brightness
	}), nil
}

// Render строит поле и сразу переводит его в полутона
func Render(ctx context.Context, size int, s Settings, rng *rand.Rand, workers int) (*field.Gray, error) {
	grid, err := Generate(ctx, size, s, rng, workers)
	if err != nil {
		return nil, err
	}
	return ToGray(grid, s)
}
