package tstprog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/xdrproxy/internal/protocol/oncrpc"
	"github.com/marmos91/xdrproxy/pkg/xlate/codec"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

func startTarget(t *testing.T) string {
	t.Helper()

	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	return srv.Addr()
}

func call(t *testing.T, addr string, procno uint32, arg value.Value) (value.Value, error) {
	t.Helper()

	reg, err := Registry()
	require.NoError(t, err)
	_, proc, err := reg.Lookup(Name, procno)
	require.NoError(t, err)

	args, err := codec.EncodeToBytes(proc.Arg, arg)
	require.NoError(t, err)

	c := oncrpc.NewClient(oncrpc.ClientConfig{Timeout: 2 * time.Second})
	defer func() { _ = c.Close() }()

	body, err := c.Call(context.Background(), addr, Number, Version, procno, args)
	if err != nil {
		return value.Nil(), err
	}
	return codec.DecodeAll(body, proc.Res)
}

func TestRegistry(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	prog, ok := reg.Program(Name)
	require.True(t, ok)
	assert.Equal(t, uint32(Number), prog.Number)
	assert.Equal(t, uint32(Version), prog.Version)
	assert.Len(t, prog.Procedures, 2)
}

func TestSchemaYAMLIsCopy(t *testing.T) {
	b := SchemaYAML()
	b[0] = 'X'
	assert.NotEqual(t, b[0], SchemaYAML()[0])
}

func TestFoo(t *testing.T) {
	addr := startTarget(t)

	reply, err := call(t, addr, ProcFoo, value.MapOf(
		value.F("x", value.Int(40)),
		value.F("y", value.String("foobarbar")),
	))
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Int(49), reply), "got %s", reply)
}

func TestBar(t *testing.T) {
	addr := startTarget(t)

	reply, err := call(t, addr, ProcBar, value.MapOf(
		value.F("xx", value.Int(1)),
		value.F("a", value.MapOf(
			value.F("x", value.Int(40)),
			value.F("y", value.String("foobarbar")),
		)),
	))
	require.NoError(t, err)

	want := value.MapOf(
		value.F("x", value.Int(41)),
		value.F("y", value.String("FOOBARBAR")),
	)
	assert.True(t, value.Equal(want, reply), "got %s", reply)
}

func TestOverflowIsSystemError(t *testing.T) {
	addr := startTarget(t)

	_, err := call(t, addr, ProcBar, value.MapOf(
		value.F("xx", value.Int(2147483647)),
		value.F("a", value.MapOf(
			value.F("x", value.Int(1)),
			value.F("y", value.String("")),
		)),
	))
	require.Error(t, err)
	assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrRemote))
	assert.Contains(t, err.Error(), "SYSTEM_ERR")
}

func TestGarbageArgs(t *testing.T) {
	addr := startTarget(t)

	c := oncrpc.NewClient(oncrpc.ClientConfig{Timeout: 2 * time.Second})
	defer func() { _ = c.Close() }()

	// x only, y missing
	_, err := c.Call(context.Background(), addr, Number, Version, ProcFoo, []byte{0, 0, 0, 1})
	require.Error(t, err)
	assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrRemote))
	assert.Contains(t, err.Error(), "GARBAGE_ARGS")
}
