// Package cache implements an optional local read-through cache (spec.md
// SPEC_FULL.md §4.K) for recently fetched chunk bodies. It is purely an
// optimization: every lookup miss falls back to the normal fetch path, and
// the cache is never consulted for correctness.
package cache

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/nekostore/neko-object/internal/logger"
)

// Cache wraps an embedded BadgerDB keyed by "fileID/idx".
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (creating if absent) a Badger store at path with the given
// per-entry TTL.
func Open(path string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

func chunkKey(fileID string, idx int) []byte {
	return []byte(fmt.Sprintf("%s/%d", fileID, idx))
}

// Get returns the cached body for (fileID, idx), or nil if absent/expired.
// A nil *Cache always misses, so callers can use the cache unconditionally
// when it's disabled in configuration.
func (c *Cache) Get(ctx context.Context, fileID string, idx int) []byte {
	if c == nil {
		return nil
	}

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(fileID, idx))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil
	}
	return data
}

// Put stores a chunk body with the cache's configured TTL.
func (c *Cache) Put(ctx context.Context, fileID string, idx int, data []byte) {
	if c == nil {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(chunkKey(fileID, idx), data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		logger.Debug("cache: failed to store chunk", "file_id", fileID, "idx", idx, "error", err)
	}
}

// Invalidate removes a cached chunk body, used when a chunk is overwritten
// or its file deleted.
func (c *Cache) Invalidate(fileID string, idx int) {
	if c == nil {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(fileID, idx))
	})
	if err != nil {
		logger.Debug("cache: failed to invalidate chunk", "file_id", fileID, "idx", idx, "error", err)
	}
}

// RunGC periodically reclaims space from expired/overwritten Badger value
// log entries, following Badger's documented GC loop pattern.
func (c *Cache) RunGC(ctx context.Context, interval time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		again:
			err := c.db.RunValueLogGC(0.5)
			if err == nil {
				goto again
			}
		}
	}
}
