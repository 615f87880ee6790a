package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_PutThenGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := openTestCache(t, time.Minute)

	c.Put(ctx, "file-1", 0, []byte("chunk-bytes"))

	got := c.Get(ctx, "file-1", 0)
	assert.Equal(t, []byte("chunk-bytes"), got)
}

func TestCache_GetMissReturnsNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := openTestCache(t, time.Minute)

	assert.Nil(t, c.Get(ctx, "missing", 0))
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := openTestCache(t, time.Minute)

	c.Put(ctx, "file-1", 0, []byte("data"))
	require.NotNil(t, c.Get(ctx, "file-1", 0))

	c.Invalidate("file-1", 0)
	assert.Nil(t, c.Get(ctx, "file-1", 0))
}

func TestCache_DistinctKeysPerChunkIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := openTestCache(t, time.Minute)

	c.Put(ctx, "file-1", 0, []byte("chunk-0"))
	c.Put(ctx, "file-1", 1, []byte("chunk-1"))

	assert.Equal(t, []byte("chunk-0"), c.Get(ctx, "file-1", 0))
	assert.Equal(t, []byte("chunk-1"), c.Get(ctx, "file-1", 1))
}

func TestNilCache_AllMethodsAreSafeNoOps(t *testing.T) {
	t.Parallel()
	var c *Cache
	ctx := context.Background()

	assert.NotPanics(t, func() {
		assert.Nil(t, c.Get(ctx, "x", 0))
		c.Put(ctx, "x", 0, []byte("y"))
		c.Invalidate("x", 0)
		assert.NoError(t, c.Close())
	})
}

func TestCache_RunGC_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	c := openTestCache(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not return after context cancellation")
	}
}
