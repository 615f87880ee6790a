// Package download implements the Download Engine (spec.md §4.E): the
// per-chunk proxy and the full-file concatenated stream with sliding-window
// prefetch and refresh-aware retry.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/cache"
	"github.com/nekostore/neko-object/internal/logger"
	"github.com/nekostore/neko-object/internal/store"
	"github.com/nekostore/neko-object/internal/urlrefresh"
)

// fetchTimeout bounds a single upstream chunk fetch (spec.md §4.E, §5).
const fetchTimeout = 120 * time.Second

// maxAttempts is the per-chunk retry budget (spec.md §4.E).
const maxAttempts = 2

// retryBackoff is applied for non-403/410 failures before the second
// attempt.
const retryBackoff = 1 * time.Second

// Engine fetches chunk bodies from the object store, refreshing expired
// URLs along the way.
type Engine struct {
	index     *store.Index
	refresher *urlrefresh.Refresher
	client    *http.Client
	cache     *cache.Cache
}

func New(index *store.Index, refresher *urlrefresh.Refresher, chunkCache *cache.Cache) *Engine {
	return &Engine{
		index:     index,
		refresher: refresher,
		client:    &http.Client{},
		cache:     chunkCache,
	}
}

// fetchChunk retrieves the body of a single chunk, retrying per spec.md
// §4.E: up to maxAttempts attempts, forcing a URL refresh on any attempt
// after the first, always retrying on upstream 403/410, and backing off
// 1s on other failures. Returns the raw bytes (chunk bodies are bounded to
// the logical 8 MiB chunk size, so buffering in memory is acceptable).
func (e *Engine) fetchChunk(ctx context.Context, chunk *store.Chunk) ([]byte, error) {
	if cached := e.cache.Get(ctx, chunk.FileID, chunk.Idx); cached != nil {
		return cached, nil
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url := chunk.URL
		if attempt > 1 {
			url = e.refresher.ForceRefresh(ctx, chunk)
		} else if urlrefresh.IsExpired(url, urlrefresh.DownloadLeadTime) {
			url = e.refresher.Resolve(ctx, chunk, urlrefresh.DownloadLeadTime)
		}

		body, status, err := e.doFetch(ctx, url)
		if err == nil {
			e.cache.Put(ctx, chunk.FileID, chunk.Idx, body)
			return body, nil
		}
		lastErr = err

		if status == http.StatusForbidden || status == http.StatusGone {
			continue // always retries, no backoff
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}

	logger.Error("download: chunk fetch exhausted retries", "file_id", chunk.FileID, "idx", chunk.Idx, "error", lastErr)
	return nil, apierr.Upstream("failed to fetch chunk from storage", lastErr)
}

func (e *Engine) doFetch(ctx context.Context, url string) ([]byte, int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
