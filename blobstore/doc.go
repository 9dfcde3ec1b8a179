// Package blobstore provides the storage abstraction metrigo snapshots are
// written to and restored from.
//
// Built-in implementations:
//
//   - LocalStore: local filesystem with atomic rename-on-close writes
//   - MemoryStore: in-memory store for testing
//   - minio.Store: MinIO and S3-compatible object storage
//
// Implementations must be safe for concurrent use.
package blobstore
