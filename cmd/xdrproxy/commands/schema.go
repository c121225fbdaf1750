package commands

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/internal/cli/output"
	"github.com/marmos91/xdrproxy/pkg/config"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
)

var (
	schemaOutputFormat string
	schemaJSONOutput   string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect procedure schema files",
}

var schemaListCmd = &cobra.Command{
	Use:   "list [files...]",
	Short: "List procedures declared by schema files",
	Long: `Compile schema files and list the procedures they declare.

Without arguments the schemas from the configuration are used, including the
built-in tst_prog_1 schema when it is enabled.

Examples:
  # List the configured procedures
  xdrproxy schema list

  # List procedures from a directory of schema files
  xdrproxy schema list ./schemas -o json`,
	RunE: runSchemaList,
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Check that schema files compile",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSchemaCheck,
}

var schemaJSONSchemaCmd = &cobra.Command{
	Use:   "jsonschema",
	Short: "Print the JSON schema of schema files",
	Long: `Print a JSON schema describing procedure schema files, for editor
completion and validation.`,
	Args: cobra.NoArgs,
	RunE: runSchemaJSONSchema,
}

func init() {
	addOutputFlag(schemaListCmd, &schemaOutputFormat)
	schemaJSONSchemaCmd.Flags().StringVarP(&schemaJSONOutput, "output", "o", "", "Write to file instead of stdout")

	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
	schemaCmd.AddCommand(schemaJSONSchemaCmd)
}

func runSchemaList(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd, schemaOutputFormat)
	if err != nil {
		return err
	}

	var procs []schema.ProcedureInfo
	if len(args) > 0 {
		reg, err := schema.LoadFiles(args...)
		if err != nil {
			return err
		}
		procs = reg.Procedures()
	} else {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		store, err := loadSchemaStore(cfg)
		if err != nil {
			return err
		}
		procs = store.Procedures()
	}

	if len(procs) == 0 && printer.Format() == output.FormatTable {
		printer.Warning("No procedures found")
		return nil
	}
	return printer.Print(output.ProcedureList(procs))
}

func runSchemaCheck(cmd *cobra.Command, args []string) error {
	reg, err := schema.LoadFiles(args...)
	if err != nil {
		return err
	}
	printer, err := newPrinter(cmd, "table")
	if err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("%d program(s), %d procedure(s)", reg.Len(), len(reg.Procedures())))
	return nil
}

func runSchemaJSONSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		FieldNameTag:              "yaml",
	}

	// TypeExpr refers to itself through $defs, so references stay on.
	s := reflector.Reflect(&schema.File{})
	s.Version = "https://json-schema.org/draft/2020-12/schema"
	s.Title = "xdrproxy Procedure Schema"
	s.Description = "Programs, types and procedures the proxy can translate"

	return output.SaveJSON(cmd.OutOrStdout(), schemaJSONOutput, s)
}
