package metrigo

import (
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/metrigo/blobstore"
	"github.com/hupe1980/metrigo/engine"
	"github.com/hupe1980/metrigo/index/mtree"
	"github.com/hupe1980/metrigo/resource"
)

// Compression selects the codec snapshots are written with.
type Compression uint8

// Supported snapshot compression codecs.
const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// String returns a string representation of the Compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionLZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ErrMalformedSnapshot is returned when snapshot data cannot be parsed.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

var snapshotMagic = [4]byte{'M', 'G', 'S', 'N'}

const snapshotVersion = 1

// snapshotHeader is the uncompressed prelude of every snapshot:
// 4 magic bytes, a format version and the compression codec of the body.
type snapshotHeader struct {
	Magic       [4]byte
	Version     uint8
	Compression uint8
}

// snapshotBody is the gob-encoded, possibly compressed remainder.
type snapshotBody[T any] struct {
	Index    []byte
	Payloads map[uint64]T
}

// SaveToWriter serializes the index and payloads to w.
func (m *Metrigo[T]) SaveToWriter(ctx context.Context, w io.Writer) error {
	return m.save(ctx, w, "stream")
}

// SaveToFile serializes the index and payloads to a file. The write goes to
// a temp file first and is renamed into place, so a crash never leaves a
// truncated snapshot under the target name.
func (m *Metrigo[T]) SaveToFile(ctx context.Context, path string) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	bs, err := blobstore.NewLocalStore(dir)
	if err != nil {
		return err
	}

	return m.SaveToBlobStore(ctx, bs, base)
}

// SaveToBlobStore serializes the index and payloads into the named blob.
func (m *Metrigo[T]) SaveToBlobStore(ctx context.Context, bs blobstore.BlobStore, name string) error {
	blob, err := bs.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := m.save(ctx, blob, name); err != nil {
		_ = blob.Close()
		return err
	}

	return blob.Close()
}

func (m *Metrigo[T]) save(ctx context.Context, w io.Writer, name string) error {
	start := time.Now()

	err := func() error {
		if err := m.rc.AcquireJob(ctx); err != nil {
			return err
		}
		defer m.rc.ReleaseJob()

		return writeSnapshot(ctx, w, m.compression, m.rc, m.engine)
	}()

	m.metrics.RecordSnapshot(time.Since(start), err)
	m.logger.LogSnapshot(ctx, name, err)

	return err
}

func writeSnapshot[T any](ctx context.Context, w io.Writer, compression Compression, rc *resource.Controller, eng *engine.Engine[T]) error {
	idxBytes, payloads, err := eng.Snapshot()
	if err != nil {
		return err
	}

	limited := io.Writer(resource.NewRateLimitedWriter(ctx, w, rc))

	header := snapshotHeader{
		Magic:       snapshotMagic,
		Version:     snapshotVersion,
		Compression: uint8(compression),
	}
	if err := binary.Write(limited, binary.LittleEndian, header); err != nil {
		return err
	}

	body, closeBody, err := compressedWriter(limited, compression)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(body).Encode(snapshotBody[T]{Index: idxBytes, Payloads: payloads}); err != nil {
		_ = closeBody()
		return err
	}

	return closeBody()
}

func compressedWriter(w io.Writer, compression Compression) (io.Writer, func() error, error) {
	switch compression {
	case CompressionNone:
		return w, func() error { return nil }, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		return lw, lw.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// RestoreOptions contains configuration options for restoring an instance
// from a snapshot.
type RestoreOptions struct {
	// Logger is the structured logger for the restored instance.
	Logger *Logger

	// Metrics is the metrics collector for the restored instance.
	Metrics MetricsCollector

	// ResourceController bounds snapshot jobs and IO of the restored instance.
	ResourceController *resource.Controller

	// NumWorkers bounds the parallelism of batch searches.
	NumWorkers int
}

// NewFromReader restores an instance from a snapshot produced by
// SaveToWriter. The restored instance keeps the snapshot's compression codec
// for subsequent saves.
func NewFromReader[T any](ctx context.Context, r io.Reader, optFns ...func(o *RestoreOptions)) (*Metrigo[T], error) {
	opts := RestoreOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	m, count, err := restore[T](ctx, r, opts)

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}
	logger.LogRestore(ctx, "stream", count, err)

	return m, err
}

// NewFromFile restores an instance from a snapshot file.
func NewFromFile[T any](ctx context.Context, path string, optFns ...func(o *RestoreOptions)) (*Metrigo[T], error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	bs, err := blobstore.NewLocalStore(dir)
	if err != nil {
		return nil, err
	}

	return NewFromBlobStore[T](ctx, bs, base, optFns...)
}

// NewFromBlobStore restores an instance from the named blob.
func NewFromBlobStore[T any](ctx context.Context, bs blobstore.BlobStore, name string, optFns ...func(o *RestoreOptions)) (*Metrigo[T], error) {
	opts := RestoreOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	blob, err := bs.Open(ctx, name)
	if err != nil {
		logger.LogRestore(ctx, name, 0, err)
		return nil, err
	}
	defer blob.Close()

	m, count, err := restore[T](ctx, blob, opts)
	logger.LogRestore(ctx, name, count, err)

	return m, err
}

func restore[T any](ctx context.Context, r io.Reader, opts RestoreOptions) (*Metrigo[T], int, error) {
	if err := opts.ResourceController.AcquireJob(ctx); err != nil {
		return nil, 0, err
	}
	defer opts.ResourceController.ReleaseJob()

	limited := io.Reader(resource.NewRateLimitedReader(ctx, r, opts.ResourceController))

	var header snapshotHeader
	if err := binary.Read(limited, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	if header.Magic != snapshotMagic {
		return nil, 0, fmt.Errorf("%w: bad magic", ErrMalformedSnapshot)
	}

	if header.Version != snapshotVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrMalformedSnapshot, header.Version)
	}

	compression := Compression(header.Compression)

	body, closeBody, err := compressedReader(limited, compression)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	defer closeBody()

	var snap snapshotBody[T]
	if err := gob.NewDecoder(body).Decode(&snap); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	tree := &mtree.Tree{}
	if err := tree.GobDecode(snap.Index); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	store := engine.NewMapStore[T]()
	if err := store.BatchSet(snap.Payloads); err != nil {
		return nil, 0, err
	}

	eng, err := engine.New[T](tree, store, func(o *engine.Options) {
		o.NumWorkers = opts.NumWorkers
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	m := newMetrigo(eng, opts.Logger, opts.Metrics, compression, opts.ResourceController)
	return m, eng.Count(), nil
}

func compressedReader(r io.Reader, compression Compression) (io.Reader, func(), error) {
	switch compression {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}
