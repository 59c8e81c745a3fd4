package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	t.Run("host and port", func(t *testing.T) {
		client, err := NewRedisClient(ctx, srv.Addr())
		require.NoError(t, err)
		defer client.Close()
		assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	})

	t.Run("url", func(t *testing.T) {
		client, err := NewRedisClient(ctx, "redis://"+srv.Addr()+"/0")
		require.NoError(t, err)
		defer client.Close()
		assert.Equal(t, "v", client.Get(ctx, "k").Val())
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewRedisClient(ctx, "")
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewRedisClient(ctx, "127.0.0.1:1")
		assert.Error(t, err)
	})
}
