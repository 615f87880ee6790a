package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekostore/neko-object/internal/store"
)

func TestContentLength_SumsFromStartChunk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 30}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 10, "https://x/0"))
	require.NoError(t, idx.PutChunk(ctx, "f1", 1, "m1", "chan-1", 20, "https://x/1"))

	total, err := e.ContentLength(ctx, "f1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)

	total, err = e.ContentLength(ctx, "f1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestContentLength_OutOfRangeStartChunk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 1}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 1, "https://x/0"))

	_, err := e.ContentLength(ctx, "f1", 5)
	assert.Error(t, err)
}

func TestStreamFile_ConcatenatesChunksInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bodies := map[string]string{"/0": "AAAA", "/1": "BBBB", "/2": "CCCC", "/3": "DDDD"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bodies[r.URL.Path]))
	}))
	t.Cleanup(srv.Close)

	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 16}))
	for i := 0; i < 4; i++ {
		require.NoError(t, idx.PutChunk(ctx, "f1", i, "m", "chan-1", 4, freshURL(t, srv.URL+bytesPath(i))))
	}

	var buf bytes.Buffer
	require.NoError(t, e.StreamFile(ctx, "f1", 0, &buf))
	assert.Equal(t, "AAAABBBBCCCCDDDD", buf.String())
}

func bytesPath(i int) string {
	return "/" + string(rune('0'+i))
}

func TestStreamFile_EmptyWhenStartChunkAtEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(ctx, store.FileMeta{ID: "f1", Name: "a.bin", Size: 4}))
	require.NoError(t, idx.PutChunk(ctx, "f1", 0, "m0", "chan-1", 4, "https://x/0"))

	var buf bytes.Buffer
	require.NoError(t, e.StreamFile(ctx, "f1", 1, &buf))
	assert.Empty(t, buf.String())
}

func TestStreamFile_CancelledContextReturnsEarly(t *testing.T) {
	t.Parallel()
	e, idx := testEngine(t)
	require.NoError(t, idx.CreateFile(context.Background(), store.FileMeta{ID: "f1", Name: "a.bin", Size: 4}))
	require.NoError(t, idx.PutChunk(context.Background(), "f1", 0, "m0", "chan-1", 4, "https://unreachable.invalid/0"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := e.StreamFile(ctx, "f1", 0, &buf)
	assert.Error(t, err)
}
