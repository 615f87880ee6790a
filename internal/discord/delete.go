package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nekostore/neko-object/internal/logger"
)

// bulkDeleteCutoff is Discord's hard limit: ChannelMessagesBulkDelete
// rejects any message older than 14 days, minus a small safety margin.
const bulkDeleteCutoff = 14*24*time.Hour - time.Hour

const (
	bulkDeleteBatchSize    = 100
	singleDeleteConcurrent = 5
	singleDeletePause      = 250 * time.Millisecond
)

// MessageRef identifies a chunk's Discord message for deletion.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// DeleteOne removes a single message. A 404 (already gone) is treated as
// success, since the desired end state — the message absent — already
// holds.
func (a *Adapter) DeleteOne(ctx context.Context, ref MessageRef) error {
	err := a.withRetry(ctx, "delete", func() error {
		return a.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	})
	if err != nil && !isNotFoundError(err) {
		return wrapUpstream("delete", err)
	}
	return nil
}

// BulkDelete removes all messages in refs, grouped by channel, in batches of
// up to 100 via the bulk endpoint. splitByAge is used only to skip a call
// known in advance to fail — messages older than Discord's 14-day bulk
// window are routed straight to individual deletes rather than wasting a
// bulk request on them. Any batch the bulk endpoint actually rejects (rate
// limiting exhausted, missing permissions, or any other non-2xx response,
// not just age) falls back to concurrent single deletes bounded at
// singleDeleteConcurrent workers, pausing singleDeletePause between
// dispatches to stay inside Discord's per-route rate limit.
func (a *Adapter) BulkDelete(ctx context.Context, refs []MessageRef) error {
	byChannel := make(map[string][]string)
	for _, ref := range refs {
		byChannel[ref.ChannelID] = append(byChannel[ref.ChannelID], ref.MessageID)
	}

	var firstErr error
	recordErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for channelID, messageIDs := range byChannel {
		recent, old := a.splitByAge(messageIDs)

		for len(recent) > 0 {
			batch := recent
			if len(batch) > bulkDeleteBatchSize {
				batch = batch[:bulkDeleteBatchSize]
			}
			recent = recent[len(batch):]

			if len(batch) == 1 {
				// The bulk endpoint requires 2-100 messages.
				old = append(old, batch...)
				continue
			}

			err := a.withRetry(ctx, "bulk-delete", func() error {
				return a.session.ChannelMessagesBulkDelete(channelID, batch, discordgo.WithContext(ctx))
			})
			if err != nil {
				logger.Debug("discord: bulk delete batch failed, falling back to single deletes",
					"channel_id", channelID, "batch_size", len(batch), "error", err)
				recordErr(a.deleteIndividually(ctx, channelID, batch))
				continue
			}
		}

		if len(old) > 0 {
			recordErr(a.deleteIndividually(ctx, channelID, old))
		}
	}

	return firstErr
}

// splitByAge separates message ids (Discord snowflakes, which encode
// creation time) into those younger and older than bulkDeleteCutoff.
func (a *Adapter) splitByAge(messageIDs []string) (recent, old []string) {
	cutoff := time.Now().Add(-bulkDeleteCutoff)
	for _, id := range messageIDs {
		ts, err := discordgo.SnowflakeTimestamp(id)
		if err != nil || ts.After(cutoff) {
			recent = append(recent, id)
			continue
		}
		old = append(old, id)
	}
	return recent, old
}

func (a *Adapter) deleteIndividually(ctx context.Context, channelID string, messageIDs []string) error {
	sem := make(chan struct{}, singleDeleteConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, id := range messageIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(messageID string) {
			defer wg.Done()
			defer func() { <-sem }()

			err := a.DeleteOne(ctx, MessageRef{ChannelID: channelID, MessageID: messageID})
			if err != nil {
				logger.Debug("discord: single delete failed", "message_id", messageID, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			time.Sleep(singleDeletePause)
		}(id)
	}
	wg.Wait()

	return firstErr
}
