// Package backup implements the Backup Protocol (spec.md §4.G): circular
// snapshotting of the raw index file to a dedicated Discord channel.
package backup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/discord"
	"github.com/nekostore/neko-object/internal/logger"
)

// markerPrefix tags backup messages so prior snapshots can be found and
// pruned without external bookkeeping.
const markerPrefix = "neko-backup::"

// scanDepth is how many recent backup-channel messages are inspected for
// cleanup before uploading a new snapshot.
const scanDepth = 10

// Protocol runs on-demand and post-finalize index snapshots.
type Protocol struct {
	adapter    *discord.Adapter
	channelID  string
	indexPath  func() string
	lastBackup time.Time
}

func New(adapter *discord.Adapter, channelID string, indexPath func() string) *Protocol {
	return &Protocol{adapter: adapter, channelID: channelID, indexPath: indexPath}
}

// LastBackup reports when Run last completed successfully, for the
// on-demand backup endpoint and the backup command.
func (p *Protocol) LastBackup() time.Time { return p.lastBackup }

// Run first deletes prior marker-prefixed messages among the last
// scanDepth messages in the backup channel, then uploads the current index
// file there with a marker-prefixed content line and a human-readable
// timestamp. Errors are logged and swallowed: a failed backup must never
// surface as a request failure (spec.md §4.G, §7).
func (p *Protocol) Run(ctx context.Context) {
	if p.channelID == "" {
		logger.Debug("backup: no backup channel configured, skipping")
		return
	}

	path := p.indexPath()
	if path == "" {
		logger.Debug("backup: no on-disk index path for this backend, skipping")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("backup: failed to read index file", "path", path, "error", err)
		return
	}

	now := time.Now()
	content := fmt.Sprintf("%s%s (%s)", markerPrefix, now.Format(time.RFC3339), humanize.Time(now))

	if err := p.pruneOldSnapshots(ctx); err != nil {
		logger.Error("backup: failed to prune prior snapshots", "error", err)
	}

	_, err = p.adapter.UploadFile(ctx, p.channelID, content, "neko.db", data)
	if err != nil {
		logger.Error("backup: snapshot upload failed", "error", err)
		return
	}

	p.lastBackup = now
	logger.Info("backup: snapshot uploaded", "bytes", len(data))
}

// pruneOldSnapshots deletes previous marker-prefixed messages among the
// most recent scanDepth messages in the backup channel.
func (p *Protocol) pruneOldSnapshots(ctx context.Context) error {
	messages, err := p.adapter.RecentMessages(ctx, p.channelID, scanDepth)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok && apiErr.Kind == apierr.KindNotFound {
			return nil
		}
		return err
	}

	var refs []discord.MessageRef
	for _, m := range messages {
		if strings.HasPrefix(m.Content, markerPrefix) {
			refs = append(refs, discord.MessageRef{ChannelID: p.channelID, MessageID: m.ID})
		}
	}
	if len(refs) == 0 {
		return nil
	}
	return p.adapter.BulkDelete(ctx, refs)
}
