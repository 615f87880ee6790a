// Package upload implements the Upload Engine (spec.md §4.D): the resumable
// chunk-upload state machine (pending -> active -> trashed) with idempotent
// chunk overwrite and abort-race protection.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/backup"
	"github.com/nekostore/neko-object/internal/discord"
	"github.com/nekostore/neko-object/internal/logger"
	"github.com/nekostore/neko-object/internal/store"
	"github.com/nekostore/neko-object/internal/workqueue"
)

// Engine drives the upload state machine. It is the only component that
// inserts chunk rows; the URL Refresh Layer updates their URLs.
type Engine struct {
	index     *store.Index
	adapter   *discord.Adapter
	channelID string
	cleanup   *workqueue.Queue
	backup    *backup.Protocol
}

func New(index *store.Index, adapter *discord.Adapter, channelID string, cleanup *workqueue.Queue, bp *backup.Protocol) *Engine {
	return &Engine{index: index, adapter: adapter, channelID: channelID, cleanup: cleanup, backup: bp}
}

// Init creates or replaces a pending File (spec.md §4.D "Init").
func (e *Engine) Init(ctx context.Context, meta store.FileMeta) error {
	return e.index.CreateFile(ctx, meta)
}

// ChunkUploadResult is the outcome of a successful Chunk-Upload.
type ChunkUploadResult struct {
	MessageID string
}

// ChunkUpload resolves the target chunk index, idempotently overwrites any
// existing chunk at that index, uploads the bytes externally, and — only
// after the upload succeeds — rechecks the file is still pending before
// committing the chunk row. This ordering is what makes a concurrent Abort
// safe (spec.md §4.D, §5 ordering guarantee 1 and 3).
func (e *Engine) ChunkUpload(ctx context.Context, fileID string, header http.Header, data []byte) (*ChunkUploadResult, error) {
	if len(data) == 0 {
		return nil, apierr.Validation("chunk body must not be empty")
	}

	file, err := e.index.GetFile(ctx, fileID)
	if err != nil {
		return nil, apierr.NotFound("upload session not found")
	}
	if file.Status != store.StatusPending {
		return nil, apierr.NotFound("upload session not found")
	}

	chunk0Size := int64(0)
	if existing, err := e.index.GetChunk(ctx, fileID, 0); err == nil && existing != nil {
		chunk0Size = existing.Size
	}

	idx, err := resolveChunkIndex(header, chunk0Size)
	if err != nil {
		return nil, err
	}

	if prior, err := e.index.GetChunk(ctx, fileID, idx); err == nil && prior != nil {
		// Idempotent overwrite: the stale external record is queued for
		// deletion and the local row removed before the new upload starts,
		// so re-uploading the same (id, idx) never leaves two rows behind.
		e.scheduleDelete(discord.MessageRef{ChannelID: prior.ChannelID, MessageID: prior.MessageID})
		if err := e.index.DeleteChunk(ctx, fileID, idx); err != nil {
			return nil, err
		}
	}

	chunkName := fmt.Sprintf("%s-%d-%s", fileID, idx, uuid.NewString())
	ref, err := e.adapter.Upload(ctx, e.channelID, chunkName, data)
	if err != nil {
		return nil, err
	}

	// Recheck: the file may have been aborted while the external upload was
	// in flight. If so, the just-uploaded record is now an orphan.
	stillPending, err := e.index.GetFile(ctx, fileID)
	if err != nil || stillPending.Status != store.StatusPending {
		e.scheduleDelete(discord.MessageRef{ChannelID: ref.ChannelID, MessageID: ref.MessageID})
		return nil, apierr.NotFound("upload session no longer exists")
	}

	if err := e.index.PutChunk(ctx, fileID, idx, ref.MessageID, ref.ChannelID, ref.Size, ref.URL); err != nil {
		return nil, err
	}

	return &ChunkUploadResult{MessageID: ref.MessageID}, nil
}

// Finalize marks a File active, compacts the index, and — unless
// skipBackup — schedules a backup snapshot in the background.
func (e *Engine) Finalize(ctx context.Context, fileID string, skipBackup bool) error {
	if err := e.index.SetStatus(ctx, fileID, store.StatusActive); err != nil {
		return err
	}
	if err := e.index.Vacuum(ctx); err != nil {
		logger.Error("upload: post-finalize vacuum failed", "file_id", fileID, "error", err)
	}
	if !skipBackup && e.backup != nil {
		e.cleanup.Enqueue(func(ctx context.Context) {
			e.backup.Run(ctx)
		})
	}
	return nil
}

// Abort removes a pending File's row and schedules bulk deletion of its
// chunks. Safe to call repeatedly (spec.md §4.D).
func (e *Engine) Abort(ctx context.Context, fileID string) error {
	chunks, err := e.index.GetChunks(ctx, fileID)
	if err != nil {
		return err
	}

	if err := e.index.DeleteFile(ctx, fileID); err != nil {
		if apiErr, ok := apierr.As(err); ok && apiErr.Kind == apierr.KindNotFound {
			return nil
		}
		return err
	}

	if len(chunks) > 0 {
		refs := chunkRefs(chunks)
		e.cleanup.Enqueue(func(ctx context.Context) {
			if err := e.adapter.BulkDelete(ctx, refs); err != nil {
				logger.Error("upload: abort cleanup failed", "file_id", fileID, "error", err)
			}
		})
	}
	return nil
}

// BulkPurgePending deletes every pending File and schedules bulk deletion
// of all their chunks.
func (e *Engine) BulkPurgePending(ctx context.Context) error {
	ids, err := e.index.ListPendingFileIDs(ctx)
	if err != nil {
		return err
	}

	var allRefs []discord.MessageRef
	for _, id := range ids {
		chunks, err := e.index.GetChunks(ctx, id)
		if err != nil {
			logger.Error("upload: failed to list chunks during purge", "file_id", id, "error", err)
			continue
		}
		allRefs = append(allRefs, chunkRefs(chunks)...)

		if err := e.index.DeleteFile(ctx, id); err != nil {
			logger.Error("upload: failed to delete pending file during purge", "file_id", id, "error", err)
		}
	}

	if len(allRefs) > 0 {
		e.cleanup.Enqueue(func(ctx context.Context) {
			if err := e.adapter.BulkDelete(ctx, allRefs); err != nil {
				logger.Error("upload: bulk purge cleanup failed", "error", err)
			}
		})
	}
	return nil
}

// PurgeTrashed permanently deletes every trashed File and schedules bulk
// deletion of all their chunks, for the "empty trash" endpoint (spec.md §6).
func (e *Engine) PurgeTrashed(ctx context.Context) (int, error) {
	result, err := e.index.ListFiles(ctx, store.StatusTrashed, 0, 0)
	if err != nil {
		return 0, err
	}

	var allRefs []discord.MessageRef
	var purged int
	for _, f := range result.Files {
		chunks, err := e.index.GetChunks(ctx, f.ID)
		if err != nil {
			logger.Error("upload: failed to list chunks during trash purge", "file_id", f.ID, "error", err)
			continue
		}
		allRefs = append(allRefs, chunkRefs(chunks)...)

		if err := e.index.DeleteFile(ctx, f.ID); err != nil {
			logger.Error("upload: failed to delete trashed file during purge", "file_id", f.ID, "error", err)
			continue
		}
		purged++
	}

	if len(allRefs) > 0 {
		e.cleanup.Enqueue(func(ctx context.Context) {
			if err := e.adapter.BulkDelete(ctx, allRefs); err != nil {
				logger.Error("upload: trash purge cleanup failed", "error", err)
			}
		})
	}
	return purged, nil
}

// DiscoverChunks returns the sorted list of chunk indices already stored
// for a File, so a resuming client knows where to continue (spec.md §4.D).
func (e *Engine) DiscoverChunks(ctx context.Context, fileID string) ([]int, error) {
	chunks, err := e.index.GetChunks(ctx, fileID)
	if err != nil {
		return nil, err
	}
	indices := make([]int, len(chunks))
	for i, c := range chunks {
		indices[i] = c.Idx
	}
	sort.Ints(indices)
	return indices, nil
}

func (e *Engine) scheduleDelete(ref discord.MessageRef) {
	e.cleanup.Enqueue(func(ctx context.Context) {
		if err := e.adapter.DeleteOne(ctx, ref); err != nil {
			logger.Error("upload: orphan chunk delete failed", "message_id", ref.MessageID, "error", err)
		}
	})
}

func chunkRefs(chunks []store.Chunk) []discord.MessageRef {
	refs := make([]discord.MessageRef, len(chunks))
	for i, c := range chunks {
		refs[i] = discord.MessageRef{ChannelID: c.ChannelID, MessageID: c.MessageID}
	}
	return refs
}
