package math32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{4, 5, 6}
		assert.InDelta(t, float32(32), Dot(a, b), 1e-6)
	})

	t.Run("orthogonal", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.Equal(t, float32(0), Dot(a, b))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, float32(0), Dot(nil, nil))
	})
}

func TestSquaredL2(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}
	assert.InDelta(t, float32(25), SquaredL2(a, b), 1e-6)
	assert.Equal(t, float32(0), SquaredL2(a, a))
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, float32(5), Norm([]float32{3, 4}), 1e-6)
	assert.Equal(t, float32(0), Norm([]float32{0, 0, 0}))
}
