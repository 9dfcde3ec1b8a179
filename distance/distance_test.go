package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		d, err := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, 0, d, 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		d, err := Cosine([]float32{1, 0, 0}, []float32{0, 1, 0})
		require.NoError(t, err)
		assert.InDelta(t, 1, d, 1e-6)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		d, err := Cosine([]float32{1, 0}, []float32{-1, 0})
		require.NoError(t, err)
		assert.InDelta(t, 2, d, 1e-6)
	})

	t.Run("scale invariant", func(t *testing.T) {
		d1, err := Cosine([]float32{1, 2, 3}, []float32{3, 2, 1})
		require.NoError(t, err)
		d2, err := Cosine([]float32{10, 20, 30}, []float32{3, 2, 1})
		require.NoError(t, err)
		assert.InDelta(t, d1, d2, 1e-6)
	})

	t.Run("zero magnitude", func(t *testing.T) {
		_, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
		assert.ErrorIs(t, err, ErrZeroMagnitude)

		_, err = Cosine([]float32{1, 2, 3}, []float32{0, 0, 0})
		assert.ErrorIs(t, err, ErrZeroMagnitude)
	})

	t.Run("size mismatch", func(t *testing.T) {
		_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
		assert.ErrorIs(t, err, ErrVectorSizeMismatch)
	})
}

func TestL2(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		d, err := L2([]float32{0, 0}, []float32{3, 4})
		require.NoError(t, err)
		assert.InDelta(t, 5, d, 1e-6)
	})

	t.Run("zero vectors allowed", func(t *testing.T) {
		d, err := L2([]float32{0, 0}, []float32{0, 0})
		require.NoError(t, err)
		assert.Equal(t, float32(0), d)
	})

	t.Run("size mismatch", func(t *testing.T) {
		_, err := L2([]float32{1}, []float32{1, 2})
		assert.ErrorIs(t, err, ErrVectorSizeMismatch)
	})
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5, Magnitude([]float32{3, 4}), 1e-6)
	assert.Equal(t, float32(0), Magnitude([]float32{0, 0}))
}

func TestProvider(t *testing.T) {
	fn, err := Provider(KindCosine)
	require.NoError(t, err)
	require.NotNil(t, fn)

	fn, err = Provider(KindL2)
	require.NoError(t, err)
	require.NotNil(t, fn)

	_, err = Provider(Kind(42))
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Cosine", KindCosine.String())
	assert.Equal(t, "L2", KindL2.String())
	assert.Equal(t, "Unknown(42)", Kind(42).String())
}
