package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME and falling back to the current directory if the home
// directory can't be determined.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "neko-object")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "neko-object")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// sampleConfig is a fully defaulted Config with placeholder Discord
// credentials, written out by `neko init`.
func sampleConfig() *Config {
	cfg := &Config{
		Discord: DiscordConfig{
			BotToken:  "REPLACE_ME",
			ChannelID: "REPLACE_ME",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// InitConfig writes a sample config file to the default location, refusing
// to overwrite an existing file unless force is set.
func InitConfig(force bool) (string, error) {
	return InitConfigToPath(GetDefaultConfigPath(), force)
}

// InitConfigToPath writes a sample config file to path.
func InitConfigToPath(path string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(sampleConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
