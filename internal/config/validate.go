package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks structural constraints on the configuration using
// go-playground/validator struct tags, plus a few cross-field checks that
// tags alone can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch cfg.Database.Type {
	case DatabaseSQLite:
		if cfg.Database.SQLitePath == "" {
			return fmt.Errorf("invalid configuration: sqlite path is required")
		}
	case DatabasePostgres:
		if cfg.Database.PostgresHost == "" || cfg.Database.PostgresDatabase == "" || cfg.Database.PostgresUser == "" {
			return fmt.Errorf("invalid configuration: postgres host/database/user are required")
		}
	default:
		return fmt.Errorf("invalid configuration: unsupported database type %q", cfg.Database.Type)
	}

	return nil
}

// PostgresDSN renders the PostgreSQL connection string.
func (c *DatabaseConfig) PostgresDSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDatabase)
	if c.PostgresSSLMode != "" {
		dsn += " sslmode=" + c.PostgresSSLMode
	}
	return dsn
}
