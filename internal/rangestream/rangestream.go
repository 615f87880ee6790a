// Package rangestream implements the Range Stream Engine (spec.md §4.F):
// single-chunk HTTP Range serving for media-style clients that re-request
// successive byte ranges.
package rangestream

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/store"
	"github.com/nekostore/neko-object/internal/urlrefresh"
)

// Engine serves a single Range request against one containing chunk.
type Engine struct {
	index     *store.Index
	refresher *urlrefresh.Refresher
	client    *http.Client
}

func New(index *store.Index, refresher *urlrefresh.Refresher) *Engine {
	return &Engine{index: index, refresher: refresher, client: &http.Client{}}
}

// Result describes the 206 response to write.
type Result struct {
	Body          io.ReadCloser
	ContentRange  string // "bytes start-globalEnd/size"
	ContentLength int64
}

// Serve implements spec.md §4.F steps 1-5: locate the file, find the chunk
// containing start, clamp the response to that chunk, refresh its URL
// under the stricter stream policy if needed, and issue a single upstream
// Range request.
func (e *Engine) Serve(ctx context.Context, fileID string, start, end int64) (*Result, error) {
	file, err := e.index.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	chunks, err := e.index.GetChunks(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var cumulative int64
	var target *store.Chunk
	var chunkStart int64
	for i := range chunks {
		c := chunks[i]
		if cumulative <= start && start < cumulative+c.Size {
			target = &chunks[i]
			chunkStart = cumulative
			break
		}
		cumulative += c.Size
	}
	if target == nil {
		return nil, apierr.RangeNotSat("requested range starts beyond file end")
	}

	localStart := start - chunkStart
	requestSize := end - start + 1
	remaining := target.Size - localStart
	actualLength := requestSize
	if remaining < actualLength {
		actualLength = remaining
	}
	localEnd := localStart + actualLength - 1
	globalEnd := start + actualLength - 1

	url := target.URL
	if urlrefresh.IsExpired(url, urlrefresh.StreamLeadTime) {
		url = e.refresher.Resolve(ctx, target, urlrefresh.StreamLeadTime)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierr.Internal("failed to build upstream range request", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", localStart, localEnd))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apierr.Upstream("upstream range fetch failed", err)
	}
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apierr.Upstream(fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	return &Result{
		Body:          resp.Body,
		ContentRange:  fmt.Sprintf("bytes %d-%d/%d", start, globalEnd, file.Size),
		ContentLength: actualLength,
	}, nil
}
