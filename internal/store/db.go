package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nekostore/neko-object/internal/config"
)

// openDB runs schema migrations and opens a GORM connection to the
// configured backend. SQLite is opened with WAL journaling and a 5s busy
// timeout so a single writer and many concurrent readers never block each
// other for long (spec.md §4.A, "single-writer embedded relational store").
func openDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Type == config.DatabaseSQLite {
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	if err := runMigrations(cfg); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case config.DatabaseSQLite:
		dsn := cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case config.DatabasePostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
