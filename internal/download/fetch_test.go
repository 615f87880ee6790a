package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekostore/neko-object/internal/cache"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/store"
	"github.com/nekostore/neko-object/internal/urlrefresh"
)

func freshURL(t *testing.T, base string) string {
	t.Helper()
	return fmt.Sprintf("%s?ex=%x", base, time.Now().Add(time.Hour).Unix())
}

func testEngine(t *testing.T) (*Engine, *store.Index) {
	t.Helper()
	cfg := &config.DatabaseConfig{Type: config.DatabaseSQLite, SQLitePath: filepath.Join(t.TempDir(), "dl.db")}
	idx, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	c, err := cache.Open(t.TempDir(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	refresher := urlrefresh.New(nil, idx, "chan-1", "")
	return New(idx, refresher, c), idx
}

func TestFetchChunk_ServesFromCacheWithoutNetwork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 5}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "msg-1", "chan-1", 5, "https://unreachable.invalid/x"))

	e.cache.Put(ctx, "f1", 0, []byte("hello"))

	chunk, err := idx.GetChunk(ctx, "f1", 0)
	require.NoError(t, err)
	data, err := e.fetchChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestFetchChunk_SuccessOnFirstAttemptPopulatesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk-bytes"))
	}))
	t.Cleanup(srv.Close)

	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 11}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "msg-1", "chan-1", 11, freshURL(t, srv.URL)))

	chunk, err := idx.GetChunk(ctx, "f1", 0)
	require.NoError(t, err)
	data, err := e.fetchChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk-bytes"), data)

	assert.Equal(t, []byte("chunk-bytes"), e.cache.Get(ctx, "f1", 0))
}

func TestFetchChunk_CancelledContextReturnsImmediately(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(context.Background(), store.FileMeta{ID: "f1", Name: "a.bin", Size: 1}))
	require.NoError(t, idx.PutChunk(context.Background(), "f1", 0, "msg-1", "chan-1", 1, "https://unreachable.invalid/x"))

	chunk, err := idx.GetChunk(context.Background(), "f1", 0)
	require.NoError(t, err)

	_, err = e.fetchChunk(ctx, chunk)
	assert.ErrorIs(t, err, context.Canceled)
}
