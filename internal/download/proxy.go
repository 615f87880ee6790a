package download

import (
	"context"

	"github.com/nekostore/neko-object/internal/apierr"
)

// ChunkBody is a single fetched chunk's bytes and declared size.
type ChunkBody struct {
	Data []byte
	Size int64
}

// FetchChunkByIndex resolves chunk N of fileID and returns its body,
// refreshing the URL first if needed (spec.md §4.E per-chunk proxy).
// Upstream failures after exhausting retries surface as Upstream (502).
func (e *Engine) FetchChunkByIndex(ctx context.Context, fileID string, index int) (*ChunkBody, error) {
	chunk, err := e.index.GetChunk(ctx, fileID, index)
	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, apierr.NotFound("chunk not found")
	}

	data, err := e.fetchChunk(ctx, chunk)
	if err != nil {
		return nil, err
	}
	return &ChunkBody{Data: data, Size: chunk.Size}, nil
}
