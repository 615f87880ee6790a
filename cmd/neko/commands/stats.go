package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekostore/neko-object/internal/cli/output"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show metadata index statistics",
	Long:  `Print active/trashed/pending file counts and storage totals.`,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	idx, err := store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open metadata index: %w", err)
	}
	defer idx.Close()

	stats, err := idx.ComputeStats(context.Background(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	return output.StatsTable(cmd.OutOrStdout(), stats.ActiveFiles, stats.TrashedFiles, stats.PendingFiles, stats.TotalBytes, stats.IndexBytes)
}
