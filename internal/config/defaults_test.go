package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 255*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DatabaseSQLite, cfg.Database.Type)
	assert.Equal(t, "./neko.db", cfg.Database.SQLitePath)
	assert.Equal(t, "./neko-cache", cfg.Cache.Path)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "http://localhost:4040", cfg.Telemetry.PyroscopeAddress)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server:   ServerConfig{Port: 9999},
		Database: DatabaseConfig{Type: DatabaseSQLite, SQLitePath: "/data/custom.db"},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/data/custom.db", cfg.Database.SQLitePath)
}

func TestApplyDefaults_PostgresGetsPortAndSSLMode(t *testing.T) {
	t.Parallel()

	cfg := &Config{Database: DatabaseConfig{Type: DatabasePostgres}}
	ApplyDefaults(cfg)

	assert.Equal(t, 5432, cfg.Database.PostgresPort)
	assert.Equal(t, "disable", cfg.Database.PostgresSSLMode)
	// sqlite-only default must not leak into a postgres config
	assert.Empty(t, cfg.Database.SQLitePath)
}
