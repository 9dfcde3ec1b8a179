package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("blob not found")

// BlobStore is an abstraction for reading and writing named data blobs
// (snapshots). Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a new blob for streaming writes. The blob becomes
	// visible under its name only when the returned handle is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is a no-op.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Reader
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a write handle for streaming blob creation.
type WritableBlob interface {
	io.Writer
	io.Closer

	// Sync flushes buffered data to the underlying storage.
	Sync() error
}
