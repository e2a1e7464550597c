package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	t.Run("Test in-memory database", func(t *testing.T) {
		ds, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		defer ds.Close()
		testStore(t, ds)
	})

	t.Run("Test data survives reopen", func(t *testing.T) {
		ctx := context.Background()
		file := filepath.Join(t.TempDir(), "cache.db")

		ds, err := NewSQLiteStore(file)
		require.NoError(t, err)
		require.NoError(t, ds.Set(ctx, "a", "1"))
		require.NoError(t, ds.Close())

		ds, err = NewSQLiteStore(file)
		require.NoError(t, err)
		defer ds.Close()

		value, err := ds.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "1", value)
	})

	t.Run("Test closed database", func(t *testing.T) {
		ds, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		require.NoError(t, ds.Close())

		_, err = ds.Count(context.Background())
		assert.Error(t, err)
		_, err = ds.Get(context.Background(), "a")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}
