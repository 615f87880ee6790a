package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/nekostore/neko-object/internal/config"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// runMigrations applies all pending schema migrations for the configured
// backend before GORM ever opens the database, so the schema is always
// explicit and reviewable rather than implicitly derived from Go structs
// (a deliberate departure from AutoMigrate — see SPEC_FULL.md §4.A).
func runMigrations(cfg *config.DatabaseConfig) error {
	switch cfg.Type {
	case config.DatabaseSQLite:
		return runSQLiteMigrations(cfg.SQLitePath)
	case config.DatabasePostgres:
		return runPostgresMigrations(cfg.PostgresDSN())
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func runSQLiteMigrations(path string) error {
	src, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("failed to load sqlite migrations: %w", err)
	}

	// The pure-Go "sqlite" migrate driver (backed by modernc.org/sqlite,
	// the same engine glebarez/sqlite wraps for GORM) takes a DSN URL
	// directly; busy_timeout matches the GORM dialector opened afterwards.
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to init sqlite migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run sqlite migrations: %w", err)
	}
	return nil
}

func runPostgresMigrations(dsn string) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to load postgres migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "postgres://"+dsn)
	if err != nil {
		return fmt.Errorf("failed to init postgres migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run postgres migrations: %w", err)
	}
	return nil
}
