// Package testutil holds helpers shared by tests of several packages.
package testutil

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core"
)

// CheckKVStore runs the behaviour every core.KVStore must have against store.
func CheckKVStore(t *testing.T, store core.KVStore) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("get missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.Equal(t, core.ErrKeyNotFound, errors.Cause(err))
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k1", []byte(`[{"id":"1"}]`)))
		got, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"1"}]`, string(got))
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k2", []byte("one")))
		require.NoError(t, store.Set(ctx, "k2", []byte("two")))
		got, err := store.Get(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k3", []byte("abc")))
		got, err := store.Get(ctx, "k3")
		require.NoError(t, err)
		got[0] = 'z'
		again, err := store.Get(ctx, "k3")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "d1", []byte("1")))
		require.NoError(t, store.Set(ctx, "d2", []byte("2")))
		require.NoError(t, store.Delete(ctx, "d1", "d2", "never-set"))
		for _, k := range []string{"d1", "d2"} {
			_, err := store.Get(ctx, k)
			assert.Equal(t, core.ErrKeyNotFound, errors.Cause(err), k)
		}
		assert.NoError(t, store.Delete(ctx))
	})
}
