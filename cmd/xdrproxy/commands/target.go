package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/internal/demo/tstprog"
	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/pkg/config"
)

var targetListen string

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Run the tst_prog_1 demo ONC-RPC server",
	Long: fmt.Sprintf(`Run the built-in %s ONC-RPC program (0x%08x, version %d).

FOO (procedure %d) returns x + len(y).
BAR (procedure %d) returns {x: xx + a.x, y: upper(a.y)}.

Together with "xdrproxy start" and "xdrproxy call" this reproduces the
end-to-end demo without any external ONC-RPC server.

Examples:
  # Listen on the default port
  xdrproxy target

  # Listen on loopback only
  xdrproxy target --listen 127.0.0.1:4000`, tstprog.Name, tstprog.Number, tstprog.Version, tstprog.ProcFoo, tstprog.ProcBar),
	RunE: runTarget,
}

func init() {
	targetCmd.Flags().StringVar(&targetListen, "listen", fmt.Sprintf(":%d", tstprog.DefaultPort), "TCP listen address")
}

func runTarget(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	srv, err := tstprog.NewServer(targetListen)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", tstprog.Name, err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Demo target is running. Press Ctrl+C to stop.",
		logger.KeyProgram, tstprog.Name,
		logger.KeyTarget, srv.Addr())

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("%s server: %w", tstprog.Name, err)
	}
	logger.Info("Demo target stopped")
	return nil
}
