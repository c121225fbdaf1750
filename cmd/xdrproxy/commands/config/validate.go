package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/pkg/config"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the xdrproxy configuration file.

Checks for syntax errors, invalid values and, when schema paths are
configured, that every schema file compiles.

Examples:
  # Validate default config
  xdrproxy config validate

  # Validate specific config file
  xdrproxy config validate --config /etc/xdrproxy/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}

	displayPath := path
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string

	programs := 0
	if len(cfg.Schemas.Paths) > 0 {
		reg, err := schema.LoadFiles(cfg.Schemas.Paths...)
		if err != nil {
			return fmt.Errorf("schemas: %w", err)
		}
		programs = reg.Len()
	}
	if cfg.Schemas.DemoEnabled() {
		warnings = append(warnings, "built-in tst_prog_1 schema is enabled")
	}
	if cfg.Proxy.DebugLevel >= 50 {
		warnings = append(warnings, "debug level 50 logs hex dumps of every call")
	}
	if cfg.Server.Address == "" {
		warnings = append(warnings, "server listens on all interfaces")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  XML-RPC endpoint: :%d%s\n", cfg.Server.Port, cfg.Server.Path)
	_, _ = fmt.Fprintf(out, "  Schema programs:  %d\n", programs)
	_, _ = fmt.Fprintf(out, "  Call timeout:     %s\n", cfg.Proxy.CallTimeout)
	_, _ = fmt.Fprintf(out, "  Log level:        %s\n", cfg.Logging.Level)
	return nil
}
