package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/pkg/config"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in $EDITOR",
	Long: `Open the configuration file in $EDITOR (or $VISUAL, or vi) and
validate it once the editor exits.

Examples:
  xdrproxy config edit
  xdrproxy config edit --config /etc/xdrproxy/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("configuration file not found: %s (create it with: xdrproxy init --config %s)", path, path)
	}

	editor := exec.Command(editorName(), path)
	editor.Stdin, editor.Stdout, editor.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := editor.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("edited configuration is invalid: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", path)
	return nil
}

func editorName() string {
	for _, env := range []string{"EDITOR", "VISUAL"} {
		if e := os.Getenv(env); e != "" {
			return e
		}
	}
	return "vi"
}
