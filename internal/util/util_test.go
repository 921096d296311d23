package util

import (
	"context"
	"testing"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRand_Deterministic(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}

	c := NewRand(43)
	assert.NotEqual(t, NewRand(42).Uint64(), c.Uint64())
}

func validReference(kind ReferenceKind) ReferenceSettings {
	return ReferenceSettings{Kind: kind, Scale: 16, Octaves: 3, Persistence: 0.5, MaxBright: 100}
}

func TestReferenceSettings_Validate(t *testing.T) {
	assert.NoError(t, validReference(ReferencePerlin).Validate())
	assert.NoError(t, validReference("OpenSimplex").Validate())

	cases := map[string]func(s *ReferenceSettings){
		"kind":        func(s *ReferenceSettings) { s.Kind = "value" },
		"scale":       func(s *ReferenceSettings) { s.Scale = 0 },
		"octaves":     func(s *ReferenceSettings) { s.Octaves = 17 },
		"persistence": func(s *ReferenceSettings) { s.Persistence = 1.5 },
		"max_bright":  func(s *ReferenceSettings) { s.MaxBright = 0 },
	}
	for name, mutate := range cases {
		s := validReference(ReferencePerlin)
		mutate(&s)
		assert.ErrorIs(t, s.Validate(), field.ErrInvalidSettings, name)
	}
}

func TestReferenceField_DeterministicPerKind(t *testing.T) {
	for _, kind := range []ReferenceKind{ReferencePerlin, ReferenceOpenSimplex} {
		s := validReference(kind)
		a, err := ReferenceField(context.Background(), 32, s, 7)
		require.NoError(t, err)
		b, err := ReferenceField(context.Background(), 32, s, 7)
		require.NoError(t, err)

		assert.Equal(t, a.Data, b.Data, "kind=%s", kind)
		assert.True(t, ReferenceGray(a, s).Equal(ReferenceGray(b, s)))
	}
}

func TestReferenceField_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReferenceField(ctx, 16, validReference(ReferenceOpenSimplex), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReferenceField_RejectsSize(t *testing.T) {
	_, err := ReferenceField(context.Background(), 0, validReference(ReferencePerlin), 1)
	assert.ErrorIs(t, err, field.ErrInvalidSize)
}
