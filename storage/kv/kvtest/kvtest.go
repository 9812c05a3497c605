// Package kvtest holds the behaviour every kv.Backend must share.
package kvtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// Keys that exercise the encodings backends need for IRIs.
var awkwardKeys = []string{
	"http://example.com/person#alice",
	"urn:uuid:6e8bc430-9c3a-11d9-9669-0800200c9a66",
	"_:b0",
	"http://example.com/path with spaces/ünïcödé",
	"a.b.c",
	"*>",
}

// Run runs the shared behaviour suite against backends produced by open.
// Every subtest gets a fresh backend.
func Run(t *testing.T, open func(t *testing.T) kv.Backend) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		ctx := context.Background()
		s := mustOpen(t, open(t), "missing")

		_, err := s.Get(ctx, "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("PutGetOverwrite", func(t *testing.T) {
		ctx := context.Background()
		s := mustOpen(t, open(t), "values")
		assert.Equal(t, "values", s.Name())

		require.NoError(t, s.Put(ctx, "k", []byte("one")))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), got)

		require.NoError(t, s.Put(ctx, "k", []byte("two")))
		got, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("AwkwardKeys", func(t *testing.T) {
		ctx := context.Background()
		s := mustOpen(t, open(t), "iris")

		for i, key := range awkwardKeys {
			require.NoError(t, s.Put(ctx, key, []byte(fmt.Sprint(i))), key)
		}
		for i, key := range awkwardKeys {
			got, err := s.Get(ctx, key)
			require.NoError(t, err, key)
			assert.Equal(t, []byte(fmt.Sprint(i)), got, key)
		}

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		want := append([]string(nil), awkwardKeys...)
		sort.Strings(want)
		sort.Strings(keys)
		assert.Equal(t, want, keys)
	})

	t.Run("EmptyKeyRejected", func(t *testing.T) {
		s := mustOpen(t, open(t), "empty")
		err := s.Put(context.Background(), "", []byte("x"))
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		s := mustOpen(t, open(t), "deletes")

		require.NoError(t, s.Put(ctx, "k", []byte("v")))
		require.NoError(t, s.Delete(ctx, "k"))
		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, kv.ErrNotFound)

		assert.NoError(t, s.Delete(ctx, "never-existed"))
	})

	t.Run("StoresAreIsolated", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		a := mustOpen(t, b, "alpha")
		c := mustOpen(t, b, "alpha_beta")

		require.NoError(t, a.Put(ctx, "k", []byte("a")))
		require.NoError(t, c.Put(ctx, "k", []byte("c")))
		require.NoError(t, c.Put(ctx, "only-c", []byte("c")))

		got, err := a.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), got)

		keys, err := a.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"k"}, keys)

		require.NoError(t, a.Clear(ctx))
		keys, err = a.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)

		keys, err = c.Keys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 2, "clearing one store leaves the others")
	})

	t.Run("ReopenSeesData", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		require.NoError(t, mustOpen(t, b, "shared").Put(ctx, "k", []byte("v")))

		got, err := mustOpen(t, b, "shared").Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("InvalidName", func(t *testing.T) {
		_, err := open(t).Open(context.Background(), "not a name")
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("PutAfterCancelStoresNothing", func(t *testing.T) {
		s := mustOpen(t, open(t), "cancelled")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, s.Put(ctx, "k", []byte("v")))

		keys, err := s.Keys(context.Background())
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		ctx := context.Background()
		s := mustOpen(t, open(t), "concurrent")

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 10 {
					key := fmt.Sprintf("k%d", j)
					assert.NoError(t, s.Put(ctx, key, []byte(fmt.Sprint(i))))
				}
			}()
		}
		wg.Wait()

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 10)
	})
}

func mustOpen(t *testing.T, b kv.Backend, name string) kv.Store {
	t.Helper()
	s, err := b.Open(context.Background(), name)
	require.NoError(t, err)
	return s
}
