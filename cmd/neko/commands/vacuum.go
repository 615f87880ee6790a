package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekostore/neko-object/internal/cli/prompt"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/store"
)

var vacuumForce bool

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the metadata index",
	Long: `Run the metadata index's VACUUM operation, reclaiming space left by
deleted files and chunks.`,
	RunE: runVacuum,
}

func init() {
	vacuumCmd.Flags().BoolVarP(&vacuumForce, "force", "f", false, "skip the confirmation prompt")
}

func runVacuum(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ok, err := prompt.ConfirmWithForce("Vacuum the metadata index now?", vacuumForce)
	if err != nil {
		return err
	}
	if !ok {
		cmd.Println("Aborted.")
		return nil
	}

	idx, err := store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open metadata index: %w", err)
	}
	defer idx.Close()

	if err := idx.Vacuum(context.Background()); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}

	cmd.Println("Vacuum complete.")
	return nil
}
