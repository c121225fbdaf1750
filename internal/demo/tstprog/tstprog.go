// Package tstprog implements tst_prog_1, a small ONC-RPC program used as the
// translation target in tests and by `xdrproxy target`.
//
//	FOO(foo_t{x, y}) -> int         x + len(y)
//	BAR(bar_t{xx, a}) -> foo_t      {x: xx + a.x, y: upper(a.y)}
//
// The handlers decode and encode through the same schema and codec the proxy
// uses, so the program doubles as a round-trip check of the codec.
package tstprog

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"strings"

	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/internal/protocol/oncrpc"
	"github.com/marmos91/xdrproxy/pkg/xlate/codec"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

const (
	Name    = "tst_prog_1"
	Number  = 0x20000001
	Version = 1

	ProcFoo = 1
	ProcBar = 2

	// DefaultPort is where the original test script expects the target.
	DefaultPort = 4000
)

//go:embed tst_prog_1.yaml
var schemaYAML []byte

// SchemaYAML returns the schema document describing the program.
func SchemaYAML() []byte {
	return append([]byte(nil), schemaYAML...)
}

// Source returns the parsed schema document, ready to be compiled together
// with other schema files.
func Source() (schema.Source, error) {
	f, err := schema.Parse(schemaYAML)
	if err != nil {
		return schema.Source{}, fmt.Errorf("parse embedded %s schema: %w", Name, err)
	}
	return schema.Source{Name: "builtin:" + Name, File: f}, nil
}

// Registry compiles the embedded schema on its own.
func Registry() (*schema.Registry, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	return schema.Compile(src)
}

// Program returns the dispatch table for tst_prog_1.
func Program() (*oncrpc.Program, error) {
	reg, err := Registry()
	if err != nil {
		return nil, err
	}
	_, foo, err := reg.Lookup(Name, ProcFoo)
	if err != nil {
		return nil, err
	}
	_, bar, err := reg.Lookup(Name, ProcBar)
	if err != nil {
		return nil, err
	}

	return &oncrpc.Program{
		Name:    Name,
		Number:  Number,
		Version: Version,
		Procedures: map[uint32]*oncrpc.Procedure{
			ProcFoo: {Name: foo.Name, Handler: handler(foo, handleFoo)},
			ProcBar: {Name: bar.Name, Handler: handler(bar, handleBar)},
		},
	}, nil
}

// NewServer creates an ONC-RPC server for tst_prog_1 on addr.
func NewServer(addr string) (*oncrpc.Server, error) {
	prog, err := Program()
	if err != nil {
		return nil, err
	}
	return oncrpc.NewServer(oncrpc.ServerConfig{Address: addr}, prog), nil
}

// handler adapts a Value-level function to raw XDR using proc's types.
func handler(proc *schema.Procedure, fn func(value.Value) (value.Value, error)) oncrpc.ProcedureHandler {
	return func(ctx context.Context, args []byte) ([]byte, error) {
		arg, err := codec.DecodeAll(args, proc.Arg)
		if err != nil {
			logger.DebugCtx(ctx, "Undecodable arguments", logger.KeyProcedure, proc.Name, logger.Err(err))
			return nil, fmt.Errorf("%s: %w", proc.Name, oncrpc.ErrGarbageArgs)
		}

		res, err := fn(arg)
		if err != nil {
			return nil, err
		}
		logger.DebugCtx(ctx, "Demo call", logger.KeyProcedure, proc.Name, logger.KeyArg, arg, logger.KeyReply, res)

		return codec.EncodeToBytes(proc.Res, res)
	}
}

func handleFoo(arg value.Value) (value.Value, error) {
	x, y := fooFields(arg)
	sum, err := add32(x, int64(len(y)))
	if err != nil {
		return value.Nil(), err
	}
	return value.Int(sum), nil
}

func handleBar(arg value.Value) (value.Value, error) {
	xx, _ := mustLookup(arg, "xx").AsInt()
	x, y := fooFields(mustLookup(arg, "a"))

	sum, err := add32(xx, x)
	if err != nil {
		return value.Nil(), err
	}
	return value.MapOf(
		value.F("x", value.Int(sum)),
		value.F("y", value.String(strings.ToUpper(y))),
	), nil
}

func fooFields(v value.Value) (int64, string) {
	x, _ := mustLookup(v, "x").AsInt()
	y, _ := mustLookup(v, "y").AsString()
	return x, y
}

// mustLookup reads a field that decoding guarantees is present.
func mustLookup(v value.Value, name string) value.Value {
	f, _ := v.Lookup(name)
	return f
}

func add32(a, b int64) (int64, error) {
	sum := a + b
	if sum < math.MinInt32 || sum > math.MaxInt32 {
		return 0, fmt.Errorf("result %d overflows int", sum)
	}
	return sum, nil
}
