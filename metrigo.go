package metrigo

import (
	"context"
	"time"

	"github.com/hupe1980/metrigo/engine"
	"github.com/hupe1980/metrigo/index"
	"github.com/hupe1980/metrigo/resource"
)

// SearchResult represents a single search result with its payload.
type SearchResult[T any] = engine.SearchResult[T]

// Metrigo is an embedded vector index for exact k-nearest-neighbor search
// with per-document payloads.
type Metrigo[T any] struct {
	engine      *engine.Engine[T]
	logger      *Logger
	metrics     MetricsCollector
	compression Compression
	rc          *resource.Controller
}

func newMetrigo[T any](eng *engine.Engine[T], logger *Logger, metrics MetricsCollector, compression Compression, rc *resource.Controller) *Metrigo[T] {
	if logger == nil {
		logger = NoopLogger()
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	return &Metrigo[T]{
		engine:      eng,
		logger:      logger,
		metrics:     metrics,
		compression: compression,
		rc:          rc,
	}
}

// Dimension returns the configured vector dimensionality.
func (m *Metrigo[T]) Dimension() int {
	return m.engine.Index().Dimension()
}

// DistanceKind returns the configured distance kind.
func (m *Metrigo[T]) DistanceKind() index.DistanceKind {
	return m.engine.Index().DistanceKind()
}

// Count returns the number of indexed documents.
func (m *Metrigo[T]) Count() int {
	return m.engine.Count()
}

// Has reports whether the given document ID is indexed.
func (m *Metrigo[T]) Has(id uint64) bool {
	return m.engine.Has(id)
}

// Insert adds a vector with its payload under the given document ID.
// Re-inserting an existing ID replaces both the vector and the payload.
func (m *Metrigo[T]) Insert(ctx context.Context, id uint64, v []float32, data T) error {
	start := time.Now()

	err := translateError(m.engine.Insert(ctx, id, v, data))

	m.metrics.RecordInsert(time.Since(start), err)
	m.logger.LogInsert(ctx, id, len(v), err)

	return err
}

// Delete removes the vector and payload stored for the given document ID.
// Deleting an unknown ID is a no-op, not an error.
func (m *Metrigo[T]) Delete(ctx context.Context, id uint64) error {
	start := time.Now()

	err := translateError(m.engine.Delete(ctx, id))

	m.metrics.RecordDelete(time.Since(start), err)
	m.logger.LogDelete(ctx, id, err)

	return err
}

// Get retrieves the payload stored for the given document ID.
// Returns ErrNotFound if the ID is not indexed.
func (m *Metrigo[T]) Get(id uint64) (T, error) {
	data, ok := m.engine.Get(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return data, nil
}

// KNNSearch returns the k nearest documents to the query vector with their
// payloads, ordered by ascending distance with ties broken by ascending ID.
// Fewer than k results are returned when the index holds fewer documents.
func (m *Metrigo[T]) KNNSearch(ctx context.Context, q []float32, k int) ([]SearchResult[T], error) {
	start := time.Now()

	results, err := m.engine.KNNSearch(ctx, q, k)
	err = translateError(err)

	m.metrics.RecordSearch(k, time.Since(start), err)
	m.logger.LogSearch(ctx, k, len(results), err)

	return results, err
}

// BatchKNNSearch runs one kNN search per query in parallel and returns the
// results in query order. The first failing query aborts the batch.
func (m *Metrigo[T]) BatchKNNSearch(ctx context.Context, queries [][]float32, k int) ([][]SearchResult[T], error) {
	start := time.Now()

	results, err := m.engine.BatchKNNSearch(ctx, queries, k)
	err = translateError(err)

	m.metrics.RecordBatchSearch(len(queries), time.Since(start), err)
	m.logger.LogBatchSearch(ctx, len(queries), k, err)

	return results, err
}
