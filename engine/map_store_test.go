package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStore(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		s := NewMapStore[string]()

		require.NoError(t, s.Set(1, "one"))

		v, ok := s.Get(1)
		require.True(t, ok)
		assert.Equal(t, "one", v)

		_, ok = s.Get(2)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		s := NewMapStore[string]()

		require.NoError(t, s.Set(1, "one"))
		require.NoError(t, s.Delete(1))
		assert.ErrorIs(t, s.Delete(1), ErrNotFound)
	})

	t.Run("batch operations", func(t *testing.T) {
		s := NewMapStore[int]()

		require.NoError(t, s.BatchSet(map[uint64]int{1: 10, 2: 20, 3: 30}))
		assert.Equal(t, 3, s.Len())

		got, err := s.BatchGet([]uint64{1, 3, 99})
		require.NoError(t, err)
		assert.Equal(t, map[uint64]int{1: 10, 3: 30}, got)

		require.NoError(t, s.BatchDelete([]uint64{1, 2}))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("clear", func(t *testing.T) {
		s := NewMapStore[int]()

		require.NoError(t, s.Set(1, 1))
		require.NoError(t, s.Clear())
		assert.Equal(t, 0, s.Len())
	})

	t.Run("to map returns a copy", func(t *testing.T) {
		s := NewMapStore[int]()

		require.NoError(t, s.Set(1, 1))

		m := s.ToMap()
		m[2] = 2

		assert.Equal(t, 1, s.Len())
	})
}
