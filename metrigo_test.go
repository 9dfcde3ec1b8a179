package metrigo

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metrigo/index"
)

func TestBuild(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		db, err := MTree[string](3).Build()
		require.NoError(t, err)

		assert.Equal(t, 3, db.Dimension())
		assert.Equal(t, index.DistanceKindCosine, db.DistanceKind())
		assert.Equal(t, 0, db.Count())
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := MTree[string](0).Build()

		var dimErr *ErrInvalidDimension
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 0, dimErr.Dimension)
	})

	t.Run("builder is immutable", func(t *testing.T) {
		base := MTree[string](3)
		_ = base.L2()

		db, err := base.Build()
		require.NoError(t, err)
		assert.Equal(t, index.DistanceKindCosine, db.DistanceKind())
	})
}

func TestInsertAndSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("angular neighbors rank before distant ones", func(t *testing.T) {
		db, err := MTree[string](3).Cosine().Build()
		require.NoError(t, err)

		const (
			idA = 1
			idB = 2
			idC = 3
		)

		require.NoError(t, db.Insert(ctx, idA, []float32{1, 0, 0}, "a"))
		require.NoError(t, db.Insert(ctx, idB, []float32{0, 1, 0}, "b"))
		require.NoError(t, db.Insert(ctx, idC, []float32{1, 0, 0.001}, "c"))

		results, err := db.KNNSearch(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		// A matches the query exactly; C is a hair off; B is orthogonal and
		// must not appear.
		assert.Equal(t, uint64(idA), results[0].ID)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)
		assert.Equal(t, uint64(idC), results[1].ID)
		assert.Less(t, results[1].Distance, float32(0.001))
	})

	t.Run("self query returns own id at distance zero", func(t *testing.T) {
		db, err := MTree[int](8).Cosine().Capacity(4).Build()
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(42))
		vectors := make(map[uint64][]float32)

		for id := uint64(0); id < 200; id++ {
			v := make([]float32, 8)
			for i := range v {
				v[i] = rng.Float32()*2 - 1
			}
			require.NoError(t, db.Insert(ctx, id, v, int(id)))
			vectors[id] = v
		}

		for id := uint64(0); id < 200; id += 17 {
			results, err := db.KNNSearch(ctx, vectors[id], 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, id, results[0].ID)
			assert.InDelta(t, 0, results[0].Distance, 1e-5)
		}
	})

	t.Run("knn of everything is sorted", func(t *testing.T) {
		db, err := MTree[int](4).L2().Capacity(4).Build()
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(7))
		const n = 120

		for id := uint64(0); id < n; id++ {
			v := make([]float32, 4)
			for i := range v {
				v[i] = rng.Float32()
			}
			require.NoError(t, db.Insert(ctx, id, v, int(id)))
		}

		results, err := db.KNNSearch(ctx, []float32{0.5, 0.5, 0.5, 0.5}, n)
		require.NoError(t, err)
		require.Len(t, results, n)

		seen := make(map[uint64]bool, n)
		for i, r := range results {
			assert.False(t, seen[r.ID])
			seen[r.ID] = true
			if i > 0 {
				assert.GreaterOrEqual(t, r.Distance, results[i-1].Distance)
			}
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		db, err := MTree[string](3).Build()
		require.NoError(t, err)

		err = db.Insert(ctx, 1, []float32{1, 0}, "short")
		var dimErr *ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 3, dimErr.Expected)
		assert.Equal(t, 2, dimErr.Actual)

		_, err = db.KNNSearch(ctx, []float32{1, 0, 0, 0}, 1)
		require.ErrorAs(t, err, &dimErr)
	})

	t.Run("zero vector", func(t *testing.T) {
		db, err := MTree[string](3).Cosine().Build()
		require.NoError(t, err)

		assert.ErrorIs(t, db.Insert(ctx, 1, []float32{0, 0, 0}, "zero"), ErrZeroVector)

		_, err = db.KNNSearch(ctx, []float32{0, 0, 0}, 1)
		assert.ErrorIs(t, err, ErrZeroVector)
	})

	t.Run("invalid k", func(t *testing.T) {
		db, err := MTree[string](3).Build()
		require.NoError(t, err)

		_, err = db.KNNSearch(ctx, []float32{1, 0, 0}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("reinsert replaces", func(t *testing.T) {
		db, err := MTree[string](2).L2().Build()
		require.NoError(t, err)

		require.NoError(t, db.Insert(ctx, 1, []float32{0, 1}, "old"))
		require.NoError(t, db.Insert(ctx, 1, []float32{5, 0}, "new"))

		assert.Equal(t, 1, db.Count())

		results, err := db.KNNSearch(ctx, []float32{0, 1}, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new", results[0].Data)
		assert.InDelta(t, 5.099, results[0].Distance, 0.01)
	})
}

func TestDeleteAndGet(t *testing.T) {
	ctx := context.Background()

	db, err := MTree[string](2).L2().Build()
	require.NoError(t, err)

	require.NoError(t, db.Insert(ctx, 1, []float32{1, 0}, "one"))
	require.NoError(t, db.Insert(ctx, 2, []float32{2, 0}, "two"))

	t.Run("get", func(t *testing.T) {
		data, err := db.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "one", data)

		_, err = db.Get(42)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deleted id never returned", func(t *testing.T) {
		require.NoError(t, db.Delete(ctx, 1))

		assert.False(t, db.Has(1))

		results, err := db.KNNSearch(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, uint64(1), r.ID)
		}

		_, err = db.Get(1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete unknown id is a no-op", func(t *testing.T) {
		require.NoError(t, db.Delete(ctx, 999))
		assert.Equal(t, 1, db.Count())
	})
}

func TestBatchKNNSearch(t *testing.T) {
	ctx := context.Background()

	db, err := MTree[int](2).L2().Workers(2).Build()
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		require.NoError(t, db.Insert(ctx, uint64(i), []float32{float32(i), 0}, i))
	}

	queries := [][]float32{{0, 0}, {15, 0}, {29, 0}}

	results, err := db.BatchKNNSearch(ctx, queries, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, uint64(0), results[0][0].ID)
	assert.Equal(t, uint64(15), results[1][0].ID)
	assert.Equal(t, uint64(29), results[2][0].ID)
}

func TestMetricsCollection(t *testing.T) {
	ctx := context.Background()

	mc := &BasicMetricsCollector{}
	db, err := MTree[string](2).L2().Metrics(mc).Build()
	require.NoError(t, err)

	require.NoError(t, db.Insert(ctx, 1, []float32{1, 0}, "one"))
	require.Error(t, db.Insert(ctx, 2, []float32{1}, "bad"))

	_, err = db.KNNSearch(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, 1))

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(0), stats.SearchErrors)
	assert.Equal(t, int64(1), stats.DeleteCount)
}
