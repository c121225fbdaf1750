package proxy

import (
	"context"
	"time"

	"github.com/marmos91/xdrproxy/internal/logger"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// Debug level thresholds. Each level includes the output of the ones below.
// Trace lines are logged at INFO so they show at the default log level.
const (
	TraceSummary = 10 // one line per translate
	TraceArgs    = 20 // validated argument tree
	TraceReply   = 30 // decoded reply tree
	TraceWire    = 50 // hex dump of call arguments and reply body
)

func traceSummary(ctx context.Context, outcome string, elapsed time.Duration, err error) {
	args := []any{
		logger.KeyOutcome, outcome,
		logger.KeyDurationMs, float64(elapsed.Microseconds()) / 1000.0,
	}
	if err != nil {
		args = append(args, logger.Err(err))
		if path := xlateerrors.PathOf(err); path != "" {
			args = append(args, logger.KeyPath, path)
		}
	}
	logger.InfoCtx(ctx, "Translate", args...)
}

func traceArgs(ctx context.Context, proc *schema.Procedure, arg value.Value) {
	logger.InfoCtx(ctx, "Translate arguments",
		logger.KeyProcedure, proc.Name,
		"type", proc.Arg.String(),
		logger.KeyArg, arg.String())
}

func traceReply(ctx context.Context, proc *schema.Procedure, reply value.Value) {
	logger.InfoCtx(ctx, "Translate reply",
		logger.KeyProcedure, proc.Name,
		"type", proc.Res.String(),
		logger.KeyReply, reply.String())
}

func traceWire(ctx context.Context, msg string, b []byte) {
	logger.InfoCtx(ctx, msg, logger.KeyBytes, len(b), logger.Wire(b))
}
