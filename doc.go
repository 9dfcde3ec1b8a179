// Package metrigo provides an embedded vector index for Go, built on an
// M-tree for exact k-nearest-neighbor search.
//
// Metrigo indexes fixed-dimension float32 embeddings under 64-bit document
// IDs and answers kNN queries by cosine or Euclidean distance, with optional
// per-document payloads, snapshots and a schema registry:
//
//   - Exact search: covering-radius pruning never trades recall for speed
//   - Type-safe fluent builder: MTree[T](dimension)
//   - Thread-safe CRUD with insert-as-replace semantics
//   - Registry with idempotent CreateIndex (IF NOT EXISTS)
//   - Snapshots with zstd/lz4 compression, to files or S3-compatible stores
//   - Structured logging (slog) and pluggable metrics
//
// # Quick Start
//
// Create an index with the type-safe builder:
//
//	ctx := context.Background()
//	db, err := metrigo.MTree[string](1536). // 1536-dimensional vectors
//	    Cosine().                           // Distance function
//	    Capacity(32).                       // Tree node capacity
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//
// Insert vectors with payloads:
//
//	if err := db.Insert(ctx, 1, embedding, "my document"); err != nil {
//	    panic(err)
//	}
//
// Search:
//
//	results, err := db.KNNSearch(ctx, query, 10)
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Distance, r.Data)
//	}
//
// # Registry
//
// The registry manages named indexes declared per table field and makes
// index creation idempotent:
//
//	reg := metrigo.NewRegistry[string]()
//	db, created, err := reg.CreateIndex(ctx, metrigo.IndexDecl{
//	    Table:        "docs",
//	    Field:        "embedding",
//	    Dimension:    1536,
//	    DistanceKind: index.DistanceKindCosine,
//	})
//
// Re-declaring the same index returns the existing instance; declaring a
// divergent one fails with ErrSchemaConflict.
//
// # Snapshots
//
// Indexes are serialized as compressed snapshots:
//
//	if err := db.SaveToFile(ctx, "docs.snap"); err != nil {
//	    panic(err)
//	}
//	db, err := metrigo.NewFromFile[string](ctx, "docs.snap")
package metrigo
