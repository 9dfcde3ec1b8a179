// Package engine coordinates a vector index with a payload store under a
// single mutual-exclusion domain, so a search never observes an ID that is
// indexed but has no payload, or vice versa.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/metrigo/index"
)

// SearchResult represents a single search result with its payload.
type SearchResult[T any] struct {
	// ID is the document identifier of the search result.
	ID uint64

	// Distance is the distance between the query vector and the result vector.
	Distance float32

	// Data is the payload stored alongside the vector.
	Data T
}

// Options contains configuration options for the engine.
type Options struct {
	// NumWorkers bounds the parallelism of batch searches.
	// 0 means runtime.GOMAXPROCS(0).
	NumWorkers int
}

// DefaultOptions contains the default configuration options for the engine.
var DefaultOptions = Options{
	NumWorkers: 0,
}

// Engine pairs an index with a payload store. All mutations go through the
// engine so the two stay consistent; the live bitmap tracks the IDs present
// in both.
type Engine[T any] struct {
	mu    sync.RWMutex
	opts  Options
	idx   index.Index
	store Store[T]
	live  *roaring64.Bitmap
}

// New creates a new engine around the given index and store. The live set is
// rebuilt from the store, so a freshly restored index/store pair comes up
// consistent.
func New[T any](idx index.Index, store Store[T], optFns ...func(o *Options)) (*Engine[T], error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if idx == nil {
		return nil, fmt.Errorf("engine: index must not be nil")
	}

	if store == nil {
		return nil, fmt.Errorf("engine: store must not be nil")
	}

	live := roaring64.New()
	for id := range store.ToMap() {
		if !idx.Has(id) {
			return nil, fmt.Errorf("engine: store holds payload for unindexed document %d", id)
		}
		live.Add(id)
	}

	if int(live.GetCardinality()) != idx.Len() {
		return nil, fmt.Errorf("engine: index holds %d documents but store holds %d", idx.Len(), live.GetCardinality())
	}

	return &Engine[T]{
		opts:  opts,
		idx:   idx,
		store: store,
		live:  live,
	}, nil
}

// Index returns the underlying index.
func (e *Engine[T]) Index() index.Index { return e.idx }

// Store returns the underlying payload store.
func (e *Engine[T]) Store() Store[T] { return e.store }

// Insert adds a vector with its payload under the given document ID.
// Re-inserting an existing ID replaces both the vector and the payload.
func (e *Engine[T]) Insert(ctx context.Context, id uint64, v []float32, data T) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.idx.Insert(ctx, id, v); err != nil {
		return err
	}

	if err := e.store.Set(id, data); err != nil {
		// Keep index and store aligned; the vector was validated already,
		// so the rollback delete cannot fail.
		_ = e.idx.Delete(ctx, id)
		return err
	}

	e.live.Add(id)

	return nil
}

// Delete removes the vector and payload stored for the given document ID.
// Deleting an unknown ID is a no-op, not an error.
func (e *Engine[T]) Delete(ctx context.Context, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.live.Contains(id) {
		return nil
	}

	if err := e.idx.Delete(ctx, id); err != nil {
		return err
	}

	if err := e.store.Delete(id); err != nil {
		return err
	}

	e.live.Remove(id)

	return nil
}

// Get retrieves the payload stored for the given document ID.
func (e *Engine[T]) Get(id uint64) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.Get(id)
}

// Has reports whether the given document ID is indexed.
func (e *Engine[T]) Has(id uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.live.Contains(id)
}

// Count returns the number of indexed documents.
func (e *Engine[T]) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return int(e.live.GetCardinality())
}

// LiveIDs returns a copy of the set of indexed document IDs.
func (e *Engine[T]) LiveIDs() *roaring64.Bitmap {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.live.Clone()
}

// Snapshot captures the serialized index and a copy of all payloads under a
// single read lock, so the two halves describe the same set of documents.
func (e *Engine[T]) Snapshot() ([]byte, map[uint64]T, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idxBytes, err := e.idx.GobEncode()
	if err != nil {
		return nil, nil, err
	}

	return idxBytes, e.store.ToMap(), nil
}

// KNNSearch returns the k nearest documents to the query vector with their
// payloads, ordered by ascending distance with ties broken by ascending ID.
func (e *Engine[T]) KNNSearch(ctx context.Context, q []float32, k int) ([]SearchResult[T], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.knnSearchLocked(ctx, q, k)
}

func (e *Engine[T]) knnSearchLocked(ctx context.Context, q []float32, k int) ([]SearchResult[T], error) {
	hits, err := e.idx.KNNSearch(ctx, q, k)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	payloads, err := e.store.BatchGet(ids)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult[T], len(hits))
	for i, h := range hits {
		data, ok := payloads[h.ID]
		if !ok {
			return nil, fmt.Errorf("engine: no payload for document %d", h.ID)
		}
		results[i] = SearchResult[T]{ID: h.ID, Distance: h.Distance, Data: data}
	}

	return results, nil
}

// BatchKNNSearch runs one kNN search per query, bounded by NumWorkers, and
// returns the results in query order. The first failing query aborts the
// remaining ones.
func (e *Engine[T]) BatchKNNSearch(ctx context.Context, queries [][]float32, k int) ([][]SearchResult[T], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	workers := e.opts.NumWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]SearchResult[T], len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range queries {
		g.Go(func() error {
			r, err := e.knnSearchLocked(gctx, q, k)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
