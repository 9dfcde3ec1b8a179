package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStores(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) BlobStore{
		"memory": func(t *testing.T) BlobStore {
			return NewMemoryStore()
		},
		"local": func(t *testing.T) BlobStore {
			s, err := NewLocalStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("put and open", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "a", []byte("hello")))

				b, err := s.Open(ctx, "a")
				require.NoError(t, err)
				defer b.Close()

				assert.Equal(t, int64(5), b.Size())

				data, err := io.ReadAll(b)
				require.NoError(t, err)
				assert.Equal(t, []byte("hello"), data)
			})

			t.Run("open missing", func(t *testing.T) {
				s := newStore(t)

				_, err := s.Open(ctx, "missing")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("streaming create", func(t *testing.T) {
				s := newStore(t)

				w, err := s.Create(ctx, "stream")
				require.NoError(t, err)

				_, err = w.Write([]byte("part1"))
				require.NoError(t, err)
				require.NoError(t, w.Sync())
				_, err = w.Write([]byte("part2"))
				require.NoError(t, err)

				// Not visible until closed.
				_, err = s.Open(ctx, "stream")
				assert.ErrorIs(t, err, ErrNotFound)

				require.NoError(t, w.Close())

				b, err := s.Open(ctx, "stream")
				require.NoError(t, err)
				defer b.Close()

				data, err := io.ReadAll(b)
				require.NoError(t, err)
				assert.Equal(t, []byte("part1part2"), data)
			})

			t.Run("delete", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "a", []byte("x")))
				require.NoError(t, s.Delete(ctx, "a"))
				require.NoError(t, s.Delete(ctx, "a"))

				_, err := s.Open(ctx, "a")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("list by prefix", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "snap-002", []byte("b")))
				require.NoError(t, s.Put(ctx, "snap-001", []byte("a")))
				require.NoError(t, s.Put(ctx, "other", []byte("c")))

				names, err := s.List(ctx, "snap-")
				require.NoError(t, err)
				assert.Equal(t, []string{"snap-001", "snap-002"}, names)
			})
		})
	}
}

func TestMemoryStoreOpenSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "a", []byte("old")))

	b, err := s.Open(ctx, "a")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, s.Put(ctx, "a", []byte("new")))

	data, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), data)
}
