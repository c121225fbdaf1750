// Package config implements the "xdrproxy config" subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for configuration management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

func init() {
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
}

// configPath returns the --config flag inherited from the root command.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
