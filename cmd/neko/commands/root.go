// Package commands implements the neko CLI's subcommands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information, injected at build time via ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "neko",
	Short: "neko-object - content-addressable object store over Discord",
	Long: `neko-object stores client-encrypted file chunks as Discord attachments
and indexes them in a local metadata store, exposing an HTTP API for
upload, download, range streaming, search and backup.

Use "neko [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: $XDG_CONFIG_HOME/neko-object/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(vacuumCmd)
	rootCmd.AddCommand(statsCmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("neko %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
