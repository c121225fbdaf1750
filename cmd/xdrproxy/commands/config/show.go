package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/xdrproxy/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and XDRPROXY_* environment
overrides have been applied.

Examples:
  # Show effective config
  xdrproxy config show

  # Show with an override
  XDRPROXY_SERVER_PORT=9000 xdrproxy config show`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, _ = cmd.OutOrStdout().Write(data)
	return nil
}
