// Package proxy implements the translation proxy: it turns a dynamically
// typed argument tree into an XDR-encoded ONC-RPC call, forwards it to the
// named target and decodes the reply back into a tree.
package proxy

import (
	"bytes"
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/internal/telemetry"
	"github.com/marmos91/xdrproxy/pkg/metrics"
	"github.com/marmos91/xdrproxy/pkg/xlate/codec"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// SchemaSource resolves procedures. *schema.Store implements it.
type SchemaSource interface {
	Lookup(program string, procno uint32) (*schema.Program, *schema.Procedure, error)
	Procedures() []schema.ProcedureInfo
}

// Caller performs one ONC-RPC exchange and returns the reply body.
// *oncrpc.Client implements it.
type Caller interface {
	Call(ctx context.Context, addr string, prog, vers, proc uint32, args []byte) ([]byte, error)
}

// Config holds proxy settings.
type Config struct {
	// DebugLevel is the initial debug level.
	DebugLevel int64
}

// Proxy translates requests. It is safe for concurrent use; the debug level
// is the only state shared between calls.
type Proxy struct {
	schemas    SchemaSource
	caller     Caller
	metrics    metrics.XlateMetrics
	debugLevel atomic.Int64
}

// New creates a proxy. m may be nil.
func New(cfg Config, schemas SchemaSource, caller Caller, m metrics.XlateMetrics) *Proxy {
	p := &Proxy{
		schemas: schemas,
		caller:  caller,
		metrics: m,
	}
	level := cfg.DebugLevel
	if level < 0 {
		level = 0
	}
	p.debugLevel.Store(level)
	if m != nil {
		m.SetDebugLevel(level)
	}
	return p
}

// SetDebugLevel replaces the debug level. Negative levels are rejected.
func (p *Proxy) SetDebugLevel(level int64) error {
	if level < 0 {
		return xlateerrors.NewInvalidArgumentError("debug level must be >= 0, got %d", level)
	}
	prev := p.debugLevel.Swap(level)
	if p.metrics != nil {
		p.metrics.SetDebugLevel(level)
	}
	logger.Info("Debug level changed", logger.KeyDebugLvl, level, "previous", prev)
	return nil
}

// DebugLevel returns the current debug level.
func (p *Proxy) DebugLevel() int64 {
	return p.debugLevel.Load()
}

// ListProcedures returns the registered procedures.
func (p *Proxy) ListProcedures() []schema.ProcedureInfo {
	return p.schemas.Procedures()
}

// Ready reports whether at least one procedure is registered.
func (p *Proxy) Ready() bool {
	return len(p.schemas.Procedures()) > 0
}

// Translate resolves, validates and encodes req.Arg, calls the target and
// decodes its reply.
//
// Schema and argument errors are returned before any network I/O. The debug
// level is read once, so a concurrent SetDebugLevel never splits the trace of
// one call.
func (p *Proxy) Translate(ctx context.Context, req *Request) (reply value.Value, err error) {
	start := time.Now()
	level := p.debugLevel.Load()
	target := req.Target()

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext("")
	}
	if lc.RequestID == "" {
		lc = lc.WithRequest(uuid.NewString(), lc.Method)
	}
	lc = lc.WithCall(target, req.Program, req.ProcNo)

	ctx, span := telemetry.StartTranslateSpan(ctx, req.Program, req.ProcNo, target, telemetry.DebugLevel(level))
	defer span.End()
	if tid := telemetry.TraceID(ctx); tid != "" {
		lc = lc.WithTrace(tid, telemetry.SpanID(ctx))
	}
	ctx = logger.WithContext(ctx, lc)

	if p.metrics != nil {
		p.metrics.RecordTranslateStart()
		defer p.metrics.RecordTranslateEnd()
	}

	procName := strconv.FormatUint(uint64(req.ProcNo), 10)
	defer func() {
		outcome := outcomeOf(err)
		elapsed := time.Since(start)
		metrics.RecordTranslate(p.metrics, req.Program, procName, outcome, elapsed)
		span.SetAttributes(telemetry.Outcome(outcome))
		if err != nil {
			telemetry.RecordError(ctx, err)
			if path := xlateerrors.PathOf(err); path != "" {
				span.SetAttributes(telemetry.ErrorPath(path))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if level >= TraceSummary {
			traceSummary(ctx, outcome, elapsed, err)
		}
	}()

	prog, proc, err := p.schemas.Lookup(req.Program, req.ProcNo)
	if err != nil {
		return value.Nil(), err
	}
	procName = proc.Name
	span.SetAttributes(telemetry.Procedure(proc.Name), telemetry.RPCProgram(prog.Number))

	if err := codec.Validate(proc.Arg, req.Arg); err != nil {
		return value.Nil(), err
	}
	if level >= TraceArgs {
		traceArgs(ctx, proc, req.Arg)
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, proc.Arg, req.Arg); err != nil {
		return value.Nil(), err
	}
	args := buf.Bytes()
	metrics.RecordPayload(p.metrics, req.Program, "arg", len(args))
	span.SetAttributes(telemetry.ArgBytes(len(args)))
	if level >= TraceWire {
		traceWire(ctx, "Call arguments", args)
	}

	body, err := p.call(ctx, target, prog, req.ProcNo, args)
	if err != nil {
		return value.Nil(), err
	}
	metrics.RecordPayload(p.metrics, req.Program, "reply", len(body))
	if level >= TraceWire {
		traceWire(ctx, "Reply body", body)
	}

	reply, err = codec.DecodeAll(body, proc.Res)
	if err != nil {
		return value.Nil(), err
	}
	if level >= TraceReply {
		traceReply(ctx, proc, reply)
	}

	return reply, nil
}

func (p *Proxy) call(ctx context.Context, target string, prog *schema.Program, procno uint32, args []byte) ([]byte, error) {
	ctx, span := telemetry.StartRPCSpan(ctx, target, prog.Number, prog.Version, procno)
	defer span.End()

	body, err := p.caller.Call(ctx, target, prog.Number, prog.Version, procno, args)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.ReplyBytes(len(body)))
	return body, nil
}

// outcomeOf labels a result for metrics and traces.
func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	if code := xlateerrors.CodeOf(err); code != 0 {
		return code.String()
	}
	return "Internal"
}
