package commands

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/xdrproxy/internal/demo/tstprog"
	"github.com/marmos91/xdrproxy/internal/protocol/oncrpc"
	"github.com/marmos91/xdrproxy/pkg/api"
	"github.com/marmos91/xdrproxy/pkg/proxy"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
	"github.com/marmos91/xdrproxy/pkg/xmlrpc"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// startStack runs the demo target and a proxy in front of it. It returns the
// proxy URL and the target port.
func startStack(t *testing.T) (string, int) {
	t.Helper()

	target, err := tstprog.NewServer("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, target.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = target.Serve(ctx) }()

	_, portStr, err := net.SplitHostPort(target.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	reg, err := tstprog.Registry()
	require.NoError(t, err)
	client := oncrpc.NewClient(oncrpc.ClientConfig{Timeout: 2 * time.Second})
	p := proxy.New(proxy.Config{}, schema.NewStore(reg), client, nil)

	srv := api.NewServer(api.Config{Address: "127.0.0.1"}, p)
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		target.Stop()
		_ = client.Close()
	})

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("proxy failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("proxy did not start")
	}
	return srv.URL(), port
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
	assert.Contains(t, out, "Platform")
}

func TestCallDemoSequence(t *testing.T) {
	url, port := startStack(t)

	out, err := execute(t, "call", "--url", url, "--port", strconv.Itoa(port), "--procno", "-1", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "BAR:")
	assert.Contains(t, out, "FOOBARBAR")
	assert.Contains(t, out, "41")
	assert.Contains(t, out, "FOO:")
	assert.Contains(t, out, "49")
}

func TestCallExplicitProcedure(t *testing.T) {
	url, port := startStack(t)

	out, err := execute(t, "call", "--url", url, "--port", strconv.Itoa(port),
		"--procno", "2", "--arg", `{"xx": 1, "a": {"x": 40, "y": "foobarbar"}}`, "-o", "json")
	require.NoError(t, err)

	got, err := value.ParseJSON([]byte(out))
	require.NoError(t, err)
	want := value.MapOf(value.F("x", value.Int(41)), value.F("y", value.String("FOOBARBAR")))
	assert.True(t, value.Equal(want, got), "got %s", got)

	_, err = execute(t, "call", "--url", url, "--port", strconv.Itoa(port),
		"--procno", "1", "--arg", `{"x": 42, "y": "foobarb", "zz": 1}`, "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SchemaMismatch")

	_, err = execute(t, "call", "--url", url, "--procno", "1", "--arg", "{not json", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --arg")
}

func TestDebugLevelAndProcedures(t *testing.T) {
	url, _ := startStack(t)

	out, err := execute(t, "debug-level", "--url", url, "30")
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)

	_, err = execute(t, "debug-level", "--url", url, "loud")
	require.Error(t, err)

	out, err = execute(t, "procedures", "--url", url, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, tstprog.Name)
	assert.Contains(t, out, "BAR")
	assert.Contains(t, out, "0x20000001")
}

func TestDebugLevelHelp(t *testing.T) {
	help := strings.Join(strings.Fields(debugLevelCmd.Long), " ")
	assert.Contains(t, help, "20 argument trees")
	assert.Contains(t, help, "30 reply trees")
	assert.Contains(t, help, "50 wire hex dumps")
}

func TestSchemaCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tst.yaml")
	require.NoError(t, os.WriteFile(path, tstprog.SchemaYAML(), 0644))

	out, err := execute(t, "schema", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 program(s)")

	out, err = execute(t, "schema", "list", path, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "FOO")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("programs: []\n"), 0644))
	_, err = execute(t, "schema", "check", bad)
	assert.Error(t, err)

	out, err = execute(t, "schema", "jsonschema")
	require.NoError(t, err)
	assert.Contains(t, out, "TypeExpr")
}

func TestProcedureInfos(t *testing.T) {
	reply := value.List(value.MapOf(
		value.F("program", value.String("p")),
		value.F("number", value.Int(0x20000001)),
		value.F("version", value.Int(1)),
		value.F("procno", value.Int(2)),
		value.F("name", value.String("BAR")),
		value.F("arg", value.String("bar_t")),
		value.F("res", value.String("foo_t")),
	))

	procs, err := procedureInfos(reply)
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, schema.ProcedureInfo{
		Program: "p", Number: 0x20000001, Version: 1, ProcNo: 2, Name: "BAR", Arg: "bar_t", Res: "foo_t",
	}, procs[0])

	_, err = procedureInfos(value.Int(1))
	assert.Error(t, err)
}

func TestDescribeFault(t *testing.T) {
	err := describeFault(&xmlrpc.Fault{Code: int(xlateerrors.ErrConnection), Message: "refused"})
	assert.Contains(t, err.Error(), "Connection")

	err = describeFault(xmlrpc.NewFault(xmlrpc.FaultMethodNotFound, "unknown method x"))
	assert.Contains(t, err.Error(), "-32601")

	plain := assert.AnError
	assert.Equal(t, plain, describeFault(plain))
}
