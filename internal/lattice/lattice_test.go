package lattice

import (
	"math"
	"testing"

	"github.com/annel0/fractal-terrain/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedScalar_Range(t *testing.T) {
	g := SeedScalar(64, util.NewRand(1))

	for _, v := range g.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSeedGradient_RangeAndSigns(t *testing.T) {
	gr := SeedGradient(64, util.NewRand(2))

	var negX, negY int
	for i := range gr.X.Data {
		assert.Greater(t, gr.X.Data[i], -1.0)
		assert.Less(t, gr.X.Data[i], 1.0)
		assert.Greater(t, gr.Y.Data[i], -1.0)
		assert.Less(t, gr.Y.Data[i], 1.0)
		if gr.X.Data[i] < 0 {
			negX++
		}
		if gr.Y.Data[i] < 0 {
			negY++
		}
	}
	// 4096 ячеек: доля отрицательных должна быть около половины
	assert.InDelta(t, 2048, negX, 300)
	assert.InDelta(t, 2048, negY, 300)
}

func TestGradient_UnitNormalizesAtSampleTime(t *testing.T) {
	gr := SeedGradient(4, util.NewRand(3))
	gr.Set(1, 2, 0.3, -0.4)

	ux, uy := gr.Unit(1, 2)
	assert.InDelta(t, 0.6, ux, 1e-12)
	assert.InDelta(t, -0.8, uy, 1e-12)
	assert.Equal(t, 0.3, gr.X.At(1, 2), "хранится ненормированный вектор")

	wx, wy := gr.Unit(5, -2)
	assert.Equal(t, ux, wx, "индексы заворачиваются")
	assert.Equal(t, uy, wy)
}

func TestGradient_ZeroVector(t *testing.T) {
	gr := SeedGradient(2, util.NewRand(4))
	gr.Set(0, 0, 0, 0)

	ux, uy := gr.Unit(0, 0)
	assert.False(t, math.IsNaN(ux) || math.IsNaN(uy))
	assert.Equal(t, 0.0, ux)
	assert.Equal(t, 0.0, uy)
}

func TestSeed_DeterministicAndOrdered(t *testing.T) {
	a := Seed(16, util.NewRand(99))
	b := Seed(16, util.NewRand(99))
	require.Equal(t, a.Scalar.Data, b.Scalar.Data)
	require.Equal(t, a.Gradient.X.Data, b.Gradient.X.Data)
	require.Equal(t, a.Gradient.Y.Data, b.Gradient.Y.Data)

	// Скалярная решётка потребляет поток первой
	scalar := SeedScalar(16, util.NewRand(99))
	assert.Equal(t, scalar.Data, a.Scalar.Data)
}
