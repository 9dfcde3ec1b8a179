package metrigo

import (
	"github.com/hupe1980/metrigo/engine"
	"github.com/hupe1980/metrigo/index"
	"github.com/hupe1980/metrigo/index/mtree"
	"github.com/hupe1980/metrigo/resource"
)

// MTree creates a new M-tree index builder with the specified dimension.
// The M-tree serves exact k-nearest-neighbor search over a metric distance.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration. This ensures thread-safety and prevents accidental
// state sharing.
//
// Example:
//
//	db, err := metrigo.MTree[string](1536).
//	    Cosine().
//	    Capacity(32).
//	    Build()
func MTree[T any](dimension int) MTreeBuilder[T] {
	return MTreeBuilder[T]{
		dimension:    dimension,
		distanceKind: index.DistanceKindCosine,
		capacity:     mtree.DefaultOptions.Capacity,
		compression:  CompressionZstd,
	}
}

// MTreeBuilder is an immutable fluent builder for creating M-tree-based
// Metrigo instances. Each method returns a new builder with the updated
// configuration.
type MTreeBuilder[T any] struct {
	dimension    int
	distanceKind index.DistanceKind
	capacity     int
	minFill      int
	compression  Compression
	logger       *Logger
	metrics      MetricsCollector
	store        engine.Store[T]
	numWorkers   int
	rc           *resource.Controller
}

// Cosine sets the distance function to cosine distance (1 - cosine
// similarity). Zero-magnitude vectors are rejected.
func (b MTreeBuilder[T]) Cosine() MTreeBuilder[T] {
	b.distanceKind = index.DistanceKindCosine
	return b
}

// L2 sets the distance function to Euclidean distance.
func (b MTreeBuilder[T]) L2() MTreeBuilder[T] {
	b.distanceKind = index.DistanceKindL2
	return b
}

// Capacity sets the maximum number of entries per tree node.
// Default: 16. Higher values mean shallower trees and fewer splits, at the
// cost of more distance computations per visited node.
func (b MTreeBuilder[T]) Capacity(n int) MTreeBuilder[T] {
	b.capacity = n
	return b
}

// MinFill sets the minimum number of entries per non-root tree node.
// Default: Capacity/2. Must not exceed (Capacity+1)/2.
func (b MTreeBuilder[T]) MinFill(n int) MTreeBuilder[T] {
	b.minFill = n
	return b
}

// Compression sets the compression codec used for snapshots.
// Default: CompressionZstd.
func (b MTreeBuilder[T]) Compression(c Compression) MTreeBuilder[T] {
	b.compression = c
	return b
}

// Logger sets the structured logger for operation tracing.
func (b MTreeBuilder[T]) Logger(l *Logger) MTreeBuilder[T] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b MTreeBuilder[T]) Metrics(mc MetricsCollector) MTreeBuilder[T] {
	b.metrics = mc
	return b
}

// Store sets the payload store. Default: in-memory map store.
func (b MTreeBuilder[T]) Store(s engine.Store[T]) MTreeBuilder[T] {
	b.store = s
	return b
}

// Workers bounds the parallelism of batch searches.
// Default: GOMAXPROCS.
func (b MTreeBuilder[T]) Workers(n int) MTreeBuilder[T] {
	b.numWorkers = n
	return b
}

// ResourceController sets the controller bounding snapshot jobs and IO.
func (b MTreeBuilder[T]) ResourceController(rc *resource.Controller) MTreeBuilder[T] {
	b.rc = rc
	return b
}

// Build creates the Metrigo instance.
func (b MTreeBuilder[T]) Build() (*Metrigo[T], error) {
	idx, err := mtree.New(func(o *mtree.Options) {
		o.Dimension = b.dimension
		o.DistanceKind = b.distanceKind
		o.Capacity = b.capacity
		o.MinFill = b.minFill
	})
	if err != nil {
		return nil, translateError(err)
	}

	store := b.store
	if store == nil {
		store = engine.NewMapStore[T]()
	}

	eng, err := engine.New[T](idx, store, func(o *engine.Options) {
		o.NumWorkers = b.numWorkers
	})
	if err != nil {
		return nil, translateError(err)
	}

	return newMetrigo(eng, b.logger, b.metrics, b.compression, b.rc), nil
}
