package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekostore/neko-object/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample neko-object configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/neko-object/config.yaml. Use --config to specify a
custom path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error
	if configFile != "" {
		configPath, err = config.InitConfigToPath(configFile, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cmd.Printf("Configuration file created at: %s\n", configPath)
	cmd.Println("\nNext steps:")
	cmd.Println("  1. Edit the file and set discord.bot_token and discord.channel_id")
	cmd.Printf("  2. Start the server with: neko serve --config %s\n", configPath)
	return nil
}
