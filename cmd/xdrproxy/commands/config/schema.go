package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/internal/cli/output"
	"github.com/marmos91/xdrproxy/pkg/config"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	Long: `Print a JSON schema for config.yaml, for editor completion and
validation. Procedure schema files have their own: xdrproxy schema jsonschema.

Examples:
  xdrproxy config schema
  xdrproxy config schema -o config.schema.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.SaveJSON(cmd.OutOrStdout(), schemaOutput, config.JSONSchema()); err != nil {
			return err
		}
		if schemaOutput != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write to file instead of stdout")
}
