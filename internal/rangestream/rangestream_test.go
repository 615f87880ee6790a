package rangestream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	cfg := &config.DatabaseConfig{Type: config.DatabaseSQLite, SQLitePath: filepath.Join(t.TempDir(), "rs.db")}
	idx, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	refresher := urlrefresh.New(nil, idx, "chan-1", "")
	return New(idx, refresher), idx
}

// rangeEchoServer serves whatever sub-slice of body the incoming Range
// header requests, as Discord's CDN does for attachment byte ranges.
func rangeEchoServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		var start, end int
		if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start : end+1])
	}))
}

func TestServe_SingleChunkWithinRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	chunkBody := []byte("0123456789")
	srv := rangeEchoServer(t, chunkBody)
	t.Cleanup(srv.Close)

	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 10}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 10, freshURL(t, srv.URL)))

	result, err := e.Serve(ctx, "f1", 2, 5)
	require.NoError(t, err)
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(data))
	assert.Equal(t, "bytes 2-5/10", result.ContentRange)
	assert.Equal(t, int64(4), result.ContentLength)
}

func TestServe_RangeClampedToChunkBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// Two 5-byte chunks; request spans across chunk 0 into chunk 1, result
	// must be clamped to chunk 0 alone.
	chunk0 := []byte("AAAAA")
	srv := rangeEchoServer(t, chunk0)
	t.Cleanup(srv.Close)

	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 10}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 5, freshURL(t, srv.URL)))
	require.NoError(t, idx.PutChunk(ctx, "f1", 1, "m1", "chan-1", 5, "https://unreachable.invalid/1"))

	result, err := e.Serve(ctx, "f1", 3, 8)
	require.NoError(t, err)
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	assert.Equal(t, "AA", string(data)) // only bytes 3-4 remain in chunk 0
	assert.Equal(t, int64(2), result.ContentLength)
}

func TestServe_StartBeyondFileEndReturnsRangeNotSatisfiable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 5}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 5, "https://unreachable.invalid/0"))

	_, err := e.Serve(ctx, "f1", 100, 105)
	assert.Error(t, err)
}

func TestServe_UpstreamNonPartialStatusSurfacesAsUpstreamError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 5}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 5, freshURL(t, srv.URL)))

	_, err := e.Serve(ctx, "f1", 0, 4)
	assert.Error(t, err)
}
