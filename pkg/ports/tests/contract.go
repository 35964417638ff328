package tests

import (
	"context"
	"testing"

	"github.com/aretw0/rerun/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCacheContract verifies that a Cache implementation adheres to the ports.Cache contract.
// Values are JSON-friendly so that serialising backends can pass.
func RunCacheContract(t *testing.T, cache ports.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "greeting", "hello"))

		v, ok, err := cache.Get(ctx, "greeting")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
	})

	t.Run("Get Missing", func(t *testing.T) {
		v, ok, err := cache.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "counter", "1"))
		require.NoError(t, cache.Put(ctx, "counter", "2"))

		v, _, err := cache.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "gone", true))
		require.NoError(t, cache.Remove(ctx, "gone"))
		require.NoError(t, cache.Remove(ctx, "never-there"))

		_, ok, err := cache.Get(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "a", "1"))
		require.NoError(t, cache.Put(ctx, "b", map[string]any{"nested": "x"}))
		require.NoError(t, cache.Clear(ctx))

		for _, key := range []string{"a", "b", "greeting"} {
			_, ok, err := cache.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "key %s should be cleared", key)
		}
	})
}
