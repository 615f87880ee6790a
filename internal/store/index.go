// Package store implements the Metadata Index (spec.md §4.A): the durable,
// single-writer record of files, chunks, full-text search, and soft-delete
// state. Exported Index methods that run several statements do so in one
// GORM transaction; single-statement methods run without an explicit
// transaction, and Vacuum runs outside any transaction.
package store

import (
	"context"
	"errors"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/config"
)

// Index is the Metadata Index. It wraps a GORM connection to either SQLite
// (default) or PostgreSQL, selected at construction time.
type Index struct {
	db       *gorm.DB
	postgres bool
}

// Open runs migrations and opens the configured backend.
func Open(cfg *config.DatabaseConfig) (*Index, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, postgres: cfg.Type == config.DatabasePostgres}, nil
}

// Close releases the underlying connection.
func (idx *Index) Close() error {
	sqlDB, err := idx.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Path returns the on-disk file backing a SQLite index, or "" for Postgres.
// Used by the Backup Protocol to read the raw index file.
func (idx *Index) Path(cfg *config.DatabaseConfig) string {
	if cfg.Type == config.DatabaseSQLite {
		return cfg.SQLitePath
	}
	return ""
}

// CreateFile inserts a new pending File. If an active File with the same id
// exists, it fails with Conflict. If a pending File with the same id
// exists, it is replaced (its chunks cascade away) before the insert,
// matching the Init operation in spec.md §4.D.
func (idx *Index) CreateFile(ctx context.Context, meta FileMeta) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing File
		err := tx.Where("id = ?", meta.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no prior record, fall through to insert
		case err != nil:
			return apierr.Internal("failed to look up file", err)
		case existing.Status == StatusActive:
			return apierr.Conflict("a file with this id already exists")
		case existing.Status == StatusPending:
			if err := deleteFileTx(tx, existing.ID); err != nil {
				return err
			}
		}

		row := File{
			ID:        meta.ID,
			Name:      meta.Name,
			Size:      meta.Size,
			Type:      meta.Type,
			IV:        meta.IV,
			Salt:      meta.Salt,
			Status:    StatusPending,
			CreatedAt: time.Now().Unix(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return apierr.Internal("failed to create file", err)
		}
		return nil
	})
}

// ListFilesResult is the paginated response for ListFiles.
type ListFilesResult struct {
	Files []File
	Total int64
}

// ListFiles returns Files with the given status, ordered by createdAt
// descending, with a total count for pagination.
func (idx *Index) ListFiles(ctx context.Context, status Status, limit, offset int) (*ListFilesResult, error) {
	var result ListFilesResult
	err := idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&File{}).Where("status = ?", status)
		if err := q.Count(&result.Total).Error; err != nil {
			return apierr.Internal("failed to count files", err)
		}

		q = tx.Where("status = ?", status).Order("created_at DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		if offset > 0 {
			q = q.Offset(offset)
		}
		if err := q.Find(&result.Files).Error; err != nil {
			return apierr.Internal("failed to list files", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchFiles performs a prefix-match full-text search over Name, scoped to
// status, with the query sanitized per spec.md §9.
func (idx *Index) SearchFiles(ctx context.Context, query string, status Status) ([]File, error) {
	var files []File
	err := idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if idx.postgres {
			tsq := sanitizeTSQuery(query)
			if tsq == "" {
				return nil
			}
			return tx.Raw(
				`SELECT f.* FROM files f WHERE f.status = ? AND f.name_tsv @@ to_tsquery('simple', ?) ORDER BY f.created_at DESC`,
				status, tsq,
			).Scan(&files).Error
		}

		ftsq := sanitizeFTSQuery(query)
		return tx.Raw(
			`SELECT f.* FROM files f
			 JOIN files_fts ON files_fts.id = f.id
			 WHERE f.status = ? AND files_fts.name MATCH ?
			 ORDER BY f.created_at DESC`,
			status, ftsq,
		).Scan(&files).Error
	})
	if err != nil {
		return nil, apierr.Internal("search failed", err)
	}
	return files, nil
}

// GetFile returns a single File by id, or NotFound.
func (idx *Index) GetFile(ctx context.Context, id string) (*File, error) {
	var f File
	err := idx.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("file not found")
	}
	if err != nil {
		return nil, apierr.Internal("failed to get file", err)
	}
	return &f, nil
}

// GetChunks returns a File's Chunks ordered by idx.
func (idx *Index) GetChunks(ctx context.Context, fileID string) ([]Chunk, error) {
	var chunks []Chunk
	err := idx.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("idx ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, apierr.Internal("failed to get chunks", err)
	}
	return chunks, nil
}

// GetChunk returns a single Chunk by (fileID, idx), or nil if absent.
func (idx *Index) GetChunk(ctx context.Context, fileID string, chunkIdx int) (*Chunk, error) {
	var c Chunk
	err := idx.db.WithContext(ctx).
		Where("file_id = ? AND idx = ?", fileID, chunkIdx).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Internal("failed to get chunk", err)
	}
	return &c, nil
}

// DeleteChunk removes any Chunk row at (fileID, idx). It is not an error if
// none exists.
func (idx *Index) DeleteChunk(ctx context.Context, fileID string, chunkIdx int) error {
	err := idx.db.WithContext(ctx).
		Where("file_id = ? AND idx = ?", fileID, chunkIdx).
		Delete(&Chunk{}).Error
	if err != nil {
		return apierr.Internal("failed to delete chunk row", err)
	}
	return nil
}

// PutChunk overwrites (delete+insert) any prior Chunk at (fileID, idx) and
// inserts the new one, keeping the (fileId, idx) uniqueness invariant
// (spec.md §3) with at most one stored record per pair.
func (idx *Index) PutChunk(ctx context.Context, fileID string, chunkIdx int, messageID, channelID string, size int64, url string) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ? AND idx = ?", fileID, chunkIdx).Delete(&Chunk{}).Error; err != nil {
			return apierr.Internal("failed to clear existing chunk row", err)
		}
		row := Chunk{
			FileID:    fileID,
			Idx:       chunkIdx,
			MessageID: messageID,
			ChannelID: channelID,
			Size:      size,
			URL:       url,
		}
		if err := tx.Create(&row).Error; err != nil {
			return apierr.Internal("failed to insert chunk", err)
		}
		return nil
	})
}

// UpdateChunkURL narrowly updates a Chunk's cached URL, used by the URL
// Refresh Layer after a successful refresh.
func (idx *Index) UpdateChunkURL(ctx context.Context, fileID string, chunkIdx int, url string) error {
	err := idx.db.WithContext(ctx).
		Model(&Chunk{}).
		Where("file_id = ? AND idx = ?", fileID, chunkIdx).
		Update("url", url).Error
	if err != nil {
		return apierr.Internal("failed to update chunk url", err)
	}
	return nil
}

// SetStatus transitions a File's status, e.g. pending->active (Finalize) or
// active->trashed (first Delete) or trashed->active (Restore).
func (idx *Index) SetStatus(ctx context.Context, id string, status Status) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f File
		if err := tx.Where("id = ?", id).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("file not found")
			}
			return apierr.Internal("failed to look up file", err)
		}
		if err := tx.Model(&f).Update("status", status).Error; err != nil {
			return apierr.Internal("failed to update status", err)
		}
		return nil
	})
}

// DeleteFile destroys a File and cascades to its Chunks. Returns NotFound if
// the File doesn't exist.
func (idx *Index) DeleteFile(ctx context.Context, id string) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f File
		if err := tx.Where("id = ?", id).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("file not found")
			}
			return apierr.Internal("failed to look up file", err)
		}
		return deleteFileTx(tx, id)
	})
}

func deleteFileTx(tx *gorm.DB, id string) error {
	if err := tx.Where("file_id = ?", id).Delete(&Chunk{}).Error; err != nil {
		return apierr.Internal("failed to delete chunks", err)
	}
	if err := tx.Where("id = ?", id).Delete(&File{}).Error; err != nil {
		return apierr.Internal("failed to delete file", err)
	}
	return nil
}

// ListPendingFileIDs returns all File ids currently in pending status, used
// by Bulk-Purge-Pending.
func (idx *Index) ListPendingFileIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := idx.db.WithContext(ctx).
		Model(&File{}).
		Where("status = ?", StatusPending).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apierr.Internal("failed to list pending files", err)
	}
	return ids, nil
}

// Vacuum compacts the index. On SQLite this runs VACUUM; on PostgreSQL it
// runs VACUUM (ANALYZE) on the two tables, since a blanket VACUUM cannot run
// inside a transaction there and GORM's VACUUM call must be issued outside
// one.
func (idx *Index) Vacuum(ctx context.Context) error {
	if idx.postgres {
		if err := idx.db.WithContext(ctx).Exec("VACUUM (ANALYZE) files").Error; err != nil {
			return apierr.Internal("vacuum failed", err)
		}
		if err := idx.db.WithContext(ctx).Exec("VACUUM (ANALYZE) chunks").Error; err != nil {
			return apierr.Internal("vacuum failed", err)
		}
		return nil
	}
	if err := idx.db.WithContext(ctx).Exec("VACUUM").Error; err != nil {
		return apierr.Internal("vacuum failed", err)
	}
	return nil
}

// Stats summarizes index contents for the /system/stats endpoint.
type Stats struct {
	ActiveFiles  int64
	TrashedFiles int64
	PendingFiles int64
	TotalBytes   int64
	IndexBytes   int64
}

// ComputeStats gathers aggregate counts plus the on-disk index file size
// (SQLite only; 0 for Postgres, which has no single backing file).
func (idx *Index) ComputeStats(ctx context.Context, cfg *config.DatabaseConfig) (*Stats, error) {
	var s Stats
	err := idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&File{}).Where("status = ?", StatusActive).Count(&s.ActiveFiles).Error; err != nil {
			return err
		}
		if err := tx.Model(&File{}).Where("status = ?", StatusTrashed).Count(&s.TrashedFiles).Error; err != nil {
			return err
		}
		if err := tx.Model(&File{}).Where("status = ?", StatusPending).Count(&s.PendingFiles).Error; err != nil {
			return err
		}
		row := tx.Model(&File{}).Where("status IN ?", []Status{StatusActive, StatusTrashed}).
			Select("COALESCE(SUM(size), 0)").Row()
		return row.Scan(&s.TotalBytes)
	})
	if err != nil {
		return nil, apierr.Internal("failed to compute stats", err)
	}

	if path := idx.Path(cfg); path != "" {
		if info, statErr := os.Stat(path); statErr == nil {
			s.IndexBytes = info.Size()
		}
	}
	return &s, nil
}
