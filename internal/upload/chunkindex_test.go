package upload

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerWith(key, value string) http.Header {
	h := http.Header{}
	h.Set(key, value)
	return h
}

func TestResolveChunkIndex_XChunkNumberHeader(t *testing.T) {
	t.Parallel()

	idx, err := resolveChunkIndex(headerWith("X-Chunk-Number", "1"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = resolveChunkIndex(headerWith("X-Chunk-Number", "5"), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)
}

func TestResolveChunkIndex_InvalidXChunkNumber(t *testing.T) {
	t.Parallel()

	_, err := resolveChunkIndex(headerWith("X-Chunk-Number", "0"), 0)
	assert.Error(t, err)

	_, err = resolveChunkIndex(headerWith("X-Chunk-Number", "not-a-number"), 0)
	assert.Error(t, err)
}

func TestResolveChunkIndex_ContentRangeStartZero(t *testing.T) {
	t.Parallel()

	idx, err := resolveChunkIndex(headerWith("Content-Range", "bytes 0-8388607/*"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestResolveChunkIndex_ContentRangeDividesByChunk0Size(t *testing.T) {
	t.Parallel()

	const chunkSize = int64(8 * 1024 * 1024)
	idx, err := resolveChunkIndex(headerWith("Content-Range", "bytes 16777216-25165823/*"), chunkSize)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestResolveChunkIndex_ContentRangeWithoutChunk0SizeFails(t *testing.T) {
	t.Parallel()

	_, err := resolveChunkIndex(headerWith("Content-Range", "bytes 8388608-16777215/*"), 0)
	assert.Error(t, err)
}

func TestResolveChunkIndex_NoHeadersDefaultsToZero(t *testing.T) {
	t.Parallel()

	idx, err := resolveChunkIndex(http.Header{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestResolveChunkIndex_MalformedContentRange(t *testing.T) {
	t.Parallel()

	_, err := resolveChunkIndex(headerWith("Content-Range", "items 0-10/*"), 100)
	assert.Error(t, err)

	_, err = resolveChunkIndex(headerWith("Content-Range", "bytes nodash"), 100)
	assert.Error(t, err)

	_, err = resolveChunkIndex(headerWith("Content-Range", "bytes abc-100/*"), 100)
	assert.Error(t, err)
}
