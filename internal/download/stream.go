package download

import (
	"context"
	"io"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/store"
)

// prefetchWindow is the number of in-flight chunk fetches maintained ahead
// of the chunk currently being written to the client (spec.md §4.E).
const prefetchWindow = 2

type chunkResult struct {
	data []byte
	err  error
}

// ContentLength returns the sum of chunk sizes from startChunk onward, for
// the stream response's Content-Length header.
func (e *Engine) ContentLength(ctx context.Context, fileID string, startChunk int) (int64, error) {
	chunks, err := e.index.GetChunks(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if startChunk < 0 || startChunk > len(chunks) {
		return 0, apierr.Validation("start_chunk out of range")
	}
	var total int64
	for _, c := range chunks[startChunk:] {
		total += c.Size
	}
	return total, nil
}

// StreamFile writes the concatenated bytes of every chunk from startChunk
// onward to w, fetching with a sliding window of prefetchWindow in-flight
// requests while writing strictly in ascending idx order (spec.md §4.E,
// §5 ordering guarantee 4). Returns early on ctx cancellation, abandoning
// any outstanding prefetches.
func (e *Engine) StreamFile(ctx context.Context, fileID string, startChunk int, w io.Writer) error {
	chunks, err := e.index.GetChunks(ctx, fileID)
	if err != nil {
		return err
	}
	if startChunk < 0 || startChunk > len(chunks) {
		return apierr.Validation("start_chunk out of range")
	}
	chunks = chunks[startChunk:]
	if len(chunks) == 0 {
		return nil
	}

	results := make([]chan chunkResult, len(chunks))
	for i := range results {
		results[i] = make(chan chunkResult, 1)
	}

	launch := func(i int) {
		go func(c store.Chunk) {
			data, err := e.fetchChunk(ctx, &c)
			results[i] <- chunkResult{data: data, err: err}
		}(chunks[i])
	}

	for i := 0; i < prefetchWindow && i < len(chunks); i++ {
		launch(i)
	}

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := i + prefetchWindow
		if next < len(chunks) {
			launch(next)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results[i]:
			if res.err != nil {
				return res.err
			}
			if _, err := w.Write(res.data); err != nil {
				return err
			}
			// release reference to this chunk's bytes before awaiting the
			// next, so steady-state memory is one written chunk plus the
			// prefetch window.
			res.data = nil
		}
	}
	return nil
}
