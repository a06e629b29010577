package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Kind      string `json:"kind"`
	Threshold string `json:"threshold"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	in := []payload{{Kind: "buy", Threshold: "5.00"}}
	require.NoError(t, c.Set(ctx, "alerts:item", in, 0))

	var out []payload
	require.NoError(t, c.Get(ctx, "alerts:item", &out))
	assert.Equal(t, in, out)

	var raw string
	require.NoError(t, c.Get(ctx, "alerts:item", &raw))
	assert.JSONEq(t, `[{"kind":"buy","threshold":"5.00"}]`, raw)
}

func TestMemoryCacheMissAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	var out string
	assert.ErrorIs(t, c.Get(ctx, "missing", &out), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var out string
	assert.ErrorIs(t, c.Get(ctx, "short", &out), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(WithMemoryMaxSize(2))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)

	var out string
	require.NoError(t, c.Get(ctx, "a", &out))
	time.Sleep(time.Millisecond)

	require.NoError(t, c.Set(ctx, "c", "3", 0))
	assert.Equal(t, 2, c.Len())
	assert.ErrorIs(t, c.Get(ctx, "b", &out), ErrCacheMiss)
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	ok, err := c.TryLock(ctx, "lock:item", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryLock(ctx, "lock:item", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Unlock(ctx, "lock:item"))
	ok, err = c.TryLock(ctx, "lock:item", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
