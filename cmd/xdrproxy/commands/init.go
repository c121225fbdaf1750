package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/internal/cli/prompt"
	"github.com/marmos91/xdrproxy/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample xdrproxy configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/xdrproxy/config.yaml.
Use --config to specify a custom path. An existing file is only replaced after
confirmation, or with --force.

Examples:
  # Initialize with default location
  xdrproxy init

  # Initialize with custom path
  xdrproxy init --config /etc/xdrproxy/config.yaml

  # Overwrite without asking
  xdrproxy init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	ok, err := prompt.ConfirmOverwrite(configPath, initForce)
	if err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted, configuration left unchanged")
		return nil
	}

	// Confirmation already happened, so the write always forces.
	if err := config.InitConfigToPath(configPath, true); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Add your procedure schema files under schemas.paths")
	_, _ = fmt.Fprintln(out, "  2. Start the proxy with: xdrproxy start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: xdrproxy start --config %s\n", configPath)
	return nil
}
