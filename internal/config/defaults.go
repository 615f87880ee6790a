package config

import "time"

// ApplyDefaults fills zero-valued fields with sensible defaults. Mirrors the
// teacher's "zero values replaced, explicit values preserved" strategy.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyCacheDefaults(&cfg.Cache)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.IdleTimeout == 0 {
		// Raised well above the default to accommodate long-running
		// full-file downloads and range streams (spec.md §5).
		cfg.IdleTimeout = 255 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Type == "" {
		cfg.Type = DatabaseSQLite
	}
	if cfg.Type == DatabaseSQLite && cfg.SQLitePath == "" {
		cfg.SQLitePath = "./neko.db"
	}
	if cfg.Type == DatabasePostgres {
		if cfg.PostgresPort == 0 {
			cfg.PostgresPort = 5432
		}
		if cfg.PostgresSSLMode == "" {
			cfg.PostgresSSLMode = "disable"
		}
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Path == "" {
		cfg.Path = "./neko-cache"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 60 * time.Second
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}
	if cfg.PyroscopeAddress == "" {
		cfg.PyroscopeAddress = "http://localhost:4040"
	}
}
