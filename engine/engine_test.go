package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/index"
	"github.com/hupe1980/metrigo/index/mtree"
)

func newTestEngine(t *testing.T, dim int) *Engine[string] {
	t.Helper()

	idx, err := mtree.New(func(o *mtree.Options) {
		o.Dimension = dim
		o.DistanceKind = index.DistanceKindL2
		o.Capacity = 4
	})
	require.NoError(t, err)

	e, err := New[string](idx, NewMapStore[string]())
	require.NoError(t, err)

	return e
}

func TestNew(t *testing.T) {
	t.Run("nil index", func(t *testing.T) {
		_, err := New[string](nil, NewMapStore[string]())
		require.Error(t, err)
	})

	t.Run("nil store", func(t *testing.T) {
		idx, err := mtree.New(func(o *mtree.Options) { o.Dimension = 2 })
		require.NoError(t, err)

		_, err = New[string](idx, nil)
		require.Error(t, err)
	})

	t.Run("store and index out of sync", func(t *testing.T) {
		idx, err := mtree.New(func(o *mtree.Options) { o.Dimension = 2 })
		require.NoError(t, err)

		store := NewMapStore[string]()
		require.NoError(t, store.Set(1, "orphan"))

		_, err = New[string](idx, store)
		require.Error(t, err)
	})

	t.Run("live set rebuilt from store", func(t *testing.T) {
		ctx := context.Background()

		idx, err := mtree.New(func(o *mtree.Options) {
			o.Dimension = 2
			o.DistanceKind = index.DistanceKindL2
		})
		require.NoError(t, err)
		require.NoError(t, idx.Insert(ctx, 7, []float32{1, 2}))

		store := NewMapStore[string]()
		require.NoError(t, store.Set(7, "seven"))

		e, err := New[string](idx, store)
		require.NoError(t, err)
		assert.Equal(t, 1, e.Count())
		assert.True(t, e.Has(7))
	})
}

func TestEngineInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("basic", func(t *testing.T) {
		e := newTestEngine(t, 2)

		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0}, "one"))
		require.NoError(t, e.Insert(ctx, 2, []float32{0, 1}, "two"))

		assert.Equal(t, 2, e.Count())

		data, ok := e.Get(1)
		require.True(t, ok)
		assert.Equal(t, "one", data)
	})

	t.Run("replace updates payload", func(t *testing.T) {
		e := newTestEngine(t, 2)

		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0}, "old"))
		require.NoError(t, e.Insert(ctx, 1, []float32{0, 1}, "new"))

		assert.Equal(t, 1, e.Count())

		data, ok := e.Get(1)
		require.True(t, ok)
		assert.Equal(t, "new", data)
	})

	t.Run("rejected vector leaves no payload", func(t *testing.T) {
		e := newTestEngine(t, 2)

		err := e.Insert(ctx, 1, []float32{1, 2, 3}, "bad")
		var dimErr *index.ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)

		assert.Equal(t, 0, e.Count())
		_, ok := e.Get(1)
		assert.False(t, ok)
	})
}

func TestEngineDelete(t *testing.T) {
	ctx := context.Background()

	e := newTestEngine(t, 2)
	require.NoError(t, e.Insert(ctx, 1, []float32{1, 0}, "one"))

	t.Run("unknown id is a no-op", func(t *testing.T) {
		require.NoError(t, e.Delete(ctx, 99))
		assert.Equal(t, 1, e.Count())
	})

	t.Run("removes vector and payload", func(t *testing.T) {
		require.NoError(t, e.Delete(ctx, 1))

		assert.Equal(t, 0, e.Count())
		assert.False(t, e.Has(1))
		_, ok := e.Get(1)
		assert.False(t, ok)
	})
}

func TestEngineKNNSearch(t *testing.T) {
	ctx := context.Background()

	e := newTestEngine(t, 2)
	for i := 0; i < 20; i++ {
		v := []float32{float32(i), 0}
		require.NoError(t, e.Insert(ctx, uint64(i), v, fmt.Sprintf("doc-%d", i)))
	}

	t.Run("payloads attached in order", func(t *testing.T) {
		results, err := e.KNNSearch(ctx, []float32{3, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, uint64(3), results[0].ID)
		assert.Equal(t, "doc-3", results[0].Data)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)

		// 2 and 4 tie at distance 1; lower ID wins.
		assert.Equal(t, uint64(2), results[1].ID)
		assert.Equal(t, uint64(4), results[2].ID)
	})

	t.Run("empty engine", func(t *testing.T) {
		empty := newTestEngine(t, 2)
		results, err := empty.KNNSearch(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestEngineBatchKNNSearch(t *testing.T) {
	ctx := context.Background()

	e := newTestEngine(t, 2)
	for i := 0; i < 50; i++ {
		v := []float32{float32(i), 0}
		require.NoError(t, e.Insert(ctx, uint64(i), v, fmt.Sprintf("doc-%d", i)))
	}

	t.Run("results in query order", func(t *testing.T) {
		queries := [][]float32{
			{0, 0},
			{10, 0},
			{49, 0},
		}

		results, err := e.BatchKNNSearch(ctx, queries, 1)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, uint64(0), results[0][0].ID)
		assert.Equal(t, uint64(10), results[1][0].ID)
		assert.Equal(t, uint64(49), results[2][0].ID)
	})

	t.Run("bad query aborts the batch", func(t *testing.T) {
		queries := [][]float32{
			{0, 0},
			{1, 2, 3}, // wrong dimension
		}

		_, err := e.BatchKNNSearch(ctx, queries, 1)
		require.Error(t, err)

		var dimErr *index.ErrDimensionMismatch
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("no queries", func(t *testing.T) {
		results, err := e.BatchKNNSearch(ctx, nil, 1)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestEngineLiveIDs(t *testing.T) {
	ctx := context.Background()

	e := newTestEngine(t, 2)
	require.NoError(t, e.Insert(ctx, 3, []float32{1, 0}, "a"))
	require.NoError(t, e.Insert(ctx, 5, []float32{0, 1}, "b"))

	live := e.LiveIDs()
	assert.Equal(t, uint64(2), live.GetCardinality())
	assert.True(t, live.Contains(3))
	assert.True(t, live.Contains(5))

	// The returned bitmap is a copy.
	live.Add(99)
	assert.False(t, e.Has(99))
}
