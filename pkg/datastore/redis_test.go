package datastore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	t.Run("Test against miniredis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		ds, err := NewRedisStore("redis://" + mr.Addr())
		require.NoError(t, err)
		defer ds.Close()
		testStore(t, ds)

		// Values are stored without expiry.
		got, err := mr.Get("MyKey")
		require.NoError(t, err)
		assert.Equal(t, " spaced {json: true} ", got)
		assert.Zero(t, mr.TTL("MyKey"))
	})

	t.Run("Test unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		ds, err := NewRedisStore("redis://" + mr.Addr())
		require.NoError(t, err)
		defer ds.Close()
		mr.Close()

		ctx := context.Background()
		assert.Error(t, ds.Ping(ctx))

		_, err = ds.Count(ctx)
		assert.Error(t, err)

		_, err = ds.Get(ctx, "a")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}
