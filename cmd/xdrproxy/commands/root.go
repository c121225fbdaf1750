// Package commands implements the xdrproxy CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/cmd/xdrproxy/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "xdrproxy",
	Short: "XML-RPC to ONC-RPC translation proxy",
	Long: `xdrproxy accepts XML-RPC calls describing an ONC-RPC procedure and its
argument as a dynamically typed tree, encodes the argument as XDR according to
a procedure schema, calls the target ONC-RPC server and returns the decoded
reply.

Use "xdrproxy [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/xdrproxy/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(debugLevelCmd)
	rootCmd.AddCommand(proceduresCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
