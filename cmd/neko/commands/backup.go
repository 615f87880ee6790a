package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekostore/neko-object/internal/backup"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/discord"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run a one-off index snapshot backup",
	Long: `Upload the current metadata index file to the configured backup
channel, pruning older snapshots, without starting the HTTP server.`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Discord.BackupChannelID == "" {
		return fmt.Errorf("discord.backup_channel_id is not configured")
	}

	adapter, err := discord.New(&cfg.Discord)
	if err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	defer adapter.Close()

	proto := backup.New(adapter, adapter.BackupChannelID(), func() string {
		return cfg.Database.SQLitePath
	})

	proto.Run(context.Background())
	if proto.LastBackup().IsZero() {
		return fmt.Errorf("backup did not complete; check logs for details")
	}

	cmd.Printf("Backup uploaded at %s\n", proto.LastBackup().Format("2006-01-02 15:04:05"))
	return nil
}
