// Package urlrefresh implements the URL Refresh Layer (spec.md §4.C): expiry
// detection for cached chunk URLs and the bulk-then-JIT refresh sequence
// shared by the Download and Range Stream engines.
package urlrefresh

import (
	"context"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"

	"github.com/nekostore/neko-object/internal/discord"
	"github.com/nekostore/neko-object/internal/logger"
	"github.com/nekostore/neko-object/internal/store"
)

// streamLeadTime is the range-stream policy's stricter expiry margin: a URL
// with less than this much life left is treated as expired.
const streamLeadTime = 5 * time.Minute

// Refresher resolves a chunk's current attachment URL, refreshing it
// through the adapter and persisting the result when the cached URL has
// expired or is about to.
type Refresher struct {
	adapter          *discord.Adapter
	index            *store.Index
	channelID        string
	secondaryChannel string
}

// New builds a Refresher. secondaryChannel is the optional mirror channel
// (spec.md §4.C's "secondary channel" fallback lookup) distinct from the
// Backup Protocol's snapshot channel.
func New(adapter *discord.Adapter, index *store.Index, channelID, secondaryChannel string) *Refresher {
	return &Refresher{
		adapter:          adapter,
		index:            index,
		channelID:        channelID,
		secondaryChannel: secondaryChannel,
	}
}

// IsExpired reports whether rawURL should be treated as expired under the
// given lead time: no "ex" parameter, an unparseable one, or an expiry
// within leadTime of now.
func IsExpired(rawURL string, leadTime time.Duration) bool {
	if rawURL == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	ex := u.Query().Get("ex")
	if ex == "" {
		return true
	}
	raw, err := hex.DecodeString(ex)
	if err != nil || len(raw) == 0 {
		return true
	}
	// Discord encodes "ex" as a hex Unix timestamp in seconds.
	ts, err := strconv.ParseInt(ex, 16, 64)
	if err != nil {
		return true
	}
	expiry := time.Unix(ts, 0)
	return time.Until(expiry) < leadTime
}

// DownloadLeadTime is the download-engine expiry policy: expired means
// already in the past (no lead time margin).
const DownloadLeadTime = 0

// StreamLeadTime is the range-stream engine's stricter policy.
const StreamLeadTime = streamLeadTime

// Resolve returns a usable URL for chunk (fileID, idx), refreshing and
// persisting it first if it is expired under leadTime. Refresh is attempted
// in order: bulk refresh through the adapter, then JIT lookup on the
// primary channel, then JIT lookup on the secondary channel if
// configured. Refresh failures are logged, not returned: the caller's fetch
// attempt decides retry/escalation from there.
func (r *Refresher) Resolve(ctx context.Context, chunk *store.Chunk, leadTime time.Duration) string {
	if !IsExpired(chunk.URL, leadTime) {
		return chunk.URL
	}
	return r.ForceRefresh(ctx, chunk)
}

// ForceRefresh runs the bulk -> JIT primary -> JIT secondary refresh
// sequence unconditionally, regardless of the cached URL's expiry. Used
// when a caller already knows the cached URL is unusable (spec.md §4.E:
// "any attempt > 1 forces a URL refresh before fetching").
func (r *Refresher) ForceRefresh(ctx context.Context, chunk *store.Chunk) string {
	ref := discord.MessageRef{ChannelID: chunk.ChannelID, MessageID: chunk.MessageID}

	results := r.adapter.RefreshURLs(ctx, []discord.MessageRef{ref})
	if len(results) == 1 && results[0].Err == nil && results[0].URL != "" {
		r.persist(ctx, chunk.FileID, chunk.Idx, results[0].URL)
		return results[0].URL
	}

	primaryRef := discord.MessageRef{ChannelID: r.channelID, MessageID: chunk.MessageID}
	if newURL, err := r.adapter.GetAttachmentURL(ctx, primaryRef); err == nil && newURL != "" {
		r.persist(ctx, chunk.FileID, chunk.Idx, newURL)
		return newURL
	}

	if r.secondaryChannel != "" {
		secondaryRef := discord.MessageRef{ChannelID: r.secondaryChannel, MessageID: chunk.MessageID}
		if newURL, err := r.adapter.GetAttachmentURL(ctx, secondaryRef); err == nil && newURL != "" {
			r.persist(ctx, chunk.FileID, chunk.Idx, newURL)
			return newURL
		}
	}

	logger.Debug("urlrefresh: all refresh attempts failed, returning stale url",
		"file_id", chunk.FileID, "idx", chunk.Idx)
	return chunk.URL
}

func (r *Refresher) persist(ctx context.Context, fileID string, idx int, url string) {
	if err := r.index.UpdateChunkURL(ctx, fileID, idx, url); err != nil {
		logger.Debug("urlrefresh: failed to persist refreshed url", "file_id", fileID, "idx", idx, "error", err)
	}
}
