// Package config loads and validates neko-object's configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables, prefix NEKO_ (e.g. NEKO_DISCORD_BOT_TOKEN)
//     (highest priority)
//  2. A YAML config file
//  3. Default values (lowest priority)
//
// The only CLI flag involved is cmd/neko's --config, which selects the file.
package config

import "time"

// Config is the root configuration object.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Discord   DiscordConfig   `mapstructure:"discord" yaml:"discord"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port" validate:"gt=0,lt=65536"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseType selects the metadata index's relational backend.
type DatabaseType string

const (
	DatabaseSQLite   DatabaseType = "sqlite"
	DatabasePostgres DatabaseType = "postgres"
)

// DatabaseConfig configures the Metadata Index's storage backend.
type DatabaseConfig struct {
	Type DatabaseType `mapstructure:"type" yaml:"type"`

	// SQLitePath is the path to the WAL-mode SQLite file (default: ./neko.db).
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// Postgres connection fields, used only when Type == postgres.
	PostgresHost     string `mapstructure:"postgres_host" yaml:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" yaml:"postgres_port"`
	PostgresDatabase string `mapstructure:"postgres_database" yaml:"postgres_database"`
	PostgresUser     string `mapstructure:"postgres_user" yaml:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" yaml:"postgres_password"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode" yaml:"postgres_sslmode"`
}

// DiscordConfig configures the Object-Store Adapter.
type DiscordConfig struct {
	BotToken         string `mapstructure:"bot_token" yaml:"bot_token" validate:"required"`
	ChannelID        string `mapstructure:"channel_id" yaml:"channel_id" validate:"required"`
	BackupChannelID  string `mapstructure:"backup_channel_id" yaml:"backup_channel_id"`
	SecondaryChannel string `mapstructure:"secondary_channel_id" yaml:"secondary_channel_id"`
}

// CacheConfig configures the optional local read-through cache (component K).
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Path    string        `mapstructure:"path" yaml:"path"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// TelemetryConfig configures optional profiling/tracing.
type TelemetryConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`

	TracingEnabled bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`

	ProfilingEnabled bool   `mapstructure:"profiling_enabled" yaml:"profiling_enabled"`
	PyroscopeAddress string `mapstructure:"pyroscope_address" yaml:"pyroscope_address"`
}

// AuthConfig configures the shared-secret bearer auth.
type AuthConfig struct {
	// Secret, when non-empty, is compared against the Authorization header
	// or token query parameter on every request. Empty disables auth checks.
	Secret string `mapstructure:"secret" yaml:"secret"`

	Debug bool `mapstructure:"debug" yaml:"debug"`
}
