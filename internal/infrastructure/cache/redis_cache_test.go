package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

func TestKey_DependsOnImageAndParameters(t *testing.T) {
	params := entity.DefaultParameters()

	a := Key([]byte("image-a"), params)
	require.True(t, strings.HasPrefix(a, "colonies:"))
	require.Len(t, strings.Split(a, ":"), 3)
	require.Equal(t, a, Key([]byte("image-a"), params))

	require.NotEqual(t, a, Key([]byte("image-b"), params))

	changed := params
	changed.GlobalThresh++
	require.NotEqual(t, a, Key([]byte("image-a"), changed))
}

func TestNoopCache(t *testing.T) {
	var c port.DetectionCache = NoopCache{}
	ctx := context.Background()

	params := entity.DefaultParameters()
	require.NoError(t, c.Set(ctx, []byte("img"), params, &port.CachedDetection{Count: 3}))
	got, err := c.Get(ctx, []byte("img"), params)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisCache_UnavailableIsMiss(t *testing.T) {
	c := NewRedisCache(Options{Addr: "127.0.0.1:1", TTL: time.Minute}, nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	params := entity.DefaultParameters()
	got, err := c.Get(ctx, []byte("img"), params)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, c.Set(ctx, []byte("img"), params, &port.CachedDetection{Count: 1}))
}
