package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) Store{
		"Local": func(t *testing.T) Store {
			s, err := NewLocal(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"Memory": func(t *testing.T) Store {
			return NewMemory()
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("PutGetRoundTrip", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "a.bin", []byte("hello")))

				data, err := s.Get(ctx, "a.bin")
				require.NoError(t, err)
				assert.Equal(t, []byte("hello"), data)
			})

			t.Run("GetMissing", func(t *testing.T) {
				s := newStore(t)

				_, err := s.Get(ctx, "missing")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("PutOverwrites", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "a", []byte("one")))
				require.NoError(t, s.Put(ctx, "a", []byte("two")))

				data, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, []byte("two"), data)
			})

			t.Run("DeleteIsIdempotent", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "a", []byte("x")))
				require.NoError(t, s.Delete(ctx, "a"))
				require.NoError(t, s.Delete(ctx, "a"))

				_, err := s.Get(ctx, "a")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("ListByPrefix", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Put(ctx, "vectors-000001.bin", nil))
				require.NoError(t, s.Put(ctx, "vectors-000002.bin", nil))
				require.NoError(t, s.Put(ctx, "CURRENT", nil))

				names, err := s.List(ctx, "vectors-")
				require.NoError(t, err)
				assert.Equal(t, []string{"vectors-000001.bin", "vectors-000002.bin"}, names)
			})
		})
	}
}
