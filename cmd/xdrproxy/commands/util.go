package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/xdrproxy/internal/cli/output"
	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource describes where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// addOutputFlag registers --output/-o on cmd.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "table", "Output format: table, json, yaml")
}

// newPrinter builds a printer for the command's stdout.
func newPrinter(cmd *cobra.Command, format string) (*output.Printer, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	color := false
	if file, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(file.Fd()))
	}
	return output.NewPrinter(out, f, color), nil
}
