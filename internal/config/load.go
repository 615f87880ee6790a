package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/nekostore/neko-object/internal/logger"
)

// Load reads configuration from an optional YAML file at path (may be
// empty), layers NEKO_-prefixed environment variables on top, applies
// defaults, validates the result, and returns it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEKO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindLegacyEnvAliases(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindLegacyEnvAliases binds the flat environment variable names listed in
// spec.md §6 (API_SECRET, DISCORD_BOT_TOKEN, DISCORD_CHANNEL_ID,
// DISCORD_BACKUP_CHANNEL_ID, PORT, DEBUG) onto the nested config keys, so
// deployments following the original variable names keep working alongside
// the NEKO_-prefixed scheme.
func bindLegacyEnvAliases(v *viper.Viper) {
	aliases := map[string]string{
		"auth.secret":               "API_SECRET",
		"discord.bot_token":         "DISCORD_BOT_TOKEN",
		"discord.channel_id":        "DISCORD_CHANNEL_ID",
		"discord.backup_channel_id": "DISCORD_BACKUP_CHANNEL_ID",
		"server.port":               "PORT",
		"auth.debug":                "DEBUG",
	}
	for key, env := range aliases {
		_ = v.BindEnv(key, env)
	}
}

// WatchLogLevel enables live-reload of only the logging level when the
// config file changes on disk. Everything else in Config requires a
// restart (most fields configure long-lived connections: the Discord
// session, the database handle).
func WatchLogLevel(path string) {
	if path == "" {
		return
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		level := v.GetString("logging.level")
		if level != "" {
			logger.SetLevel(level)
			logger.Info("log level reloaded from config", "level", level)
		}
	})
	v.WatchConfig()
}
