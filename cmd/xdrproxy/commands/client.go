package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/xdrproxy/internal/cli/output"
	"github.com/marmos91/xdrproxy/internal/demo/tstprog"
	"github.com/marmos91/xdrproxy/pkg/api"
	"github.com/marmos91/xdrproxy/pkg/proxy"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
	"github.com/marmos91/xdrproxy/pkg/xmlrpc"
)

// Flags shared by the client commands.
var (
	clientURL     string
	clientTimeout time.Duration
	clientOutput  string
)

// Flags for call.
var (
	callHost       string
	callPort       int
	callProgram    string
	callProcNo     int64
	callArg        string
	callDebugLevel int64
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call a procedure through a running proxy",
	Long: `Send an xdr.xlate request to a running proxy and print the reply.

The argument tree is given as JSON. Integers become XML-RPC ints, strings
become strings and objects become structs with their member order kept.

Without --procno the command runs the demo sequence against tst_prog_1: it
sets the debug level, calls BAR with {xx: 1, a: {x: 40, y: "foobarbar"}} and
FOO with {x: 42, y: "foobarb"}.

Examples:
  # Run the demo sequence against a local proxy and target
  xdrproxy call

  # Call FOO explicitly
  xdrproxy call --procno 1 --arg '{"x": 42, "y": "foobarb"}'

  # Call another program on another host, JSON output
  xdrproxy call --host nfs1 --port 2049 --program nfs_v3 --procno 0 -o json`,
	Args: cobra.NoArgs,
	RunE: runCall,
}

var debugLevelCmd = &cobra.Command{
	Use:   "debug-level [level]",
	Short: "Get or set the proxy debug level",
	Long: fmt.Sprintf(`Without an argument, print the current debug level of a running proxy.
With an argument, set it. Levels: 0 off, %d summaries, %d argument trees,
%d reply trees, %d wire hex dumps.`,
		proxy.TraceSummary, proxy.TraceArgs, proxy.TraceReply, proxy.TraceWire),
	Args: cobra.MaximumNArgs(1),
	RunE: runDebugLevel,
}

var proceduresCmd = &cobra.Command{
	Use:   "procedures",
	Short: "List procedures known to a running proxy",
	Args:  cobra.NoArgs,
	RunE:  runProcedures,
}

func init() {
	defaultURL := fmt.Sprintf("http://127.0.0.1:%d%s", api.DefaultPort, api.DefaultPath)
	for _, cmd := range []*cobra.Command{callCmd, debugLevelCmd, proceduresCmd} {
		cmd.Flags().StringVar(&clientURL, "url", defaultURL, "XML-RPC endpoint of the proxy")
		cmd.Flags().DurationVar(&clientTimeout, "timeout", 30*time.Second, "Request timeout")
	}
	addOutputFlag(callCmd, &clientOutput)
	addOutputFlag(proceduresCmd, &clientOutput)

	callCmd.Flags().StringVar(&callHost, "host", "127.0.0.1", "Target ONC-RPC host")
	callCmd.Flags().IntVar(&callPort, "port", tstprog.DefaultPort, "Target ONC-RPC port")
	callCmd.Flags().StringVar(&callProgram, "program", tstprog.Name, "Program name as registered in the proxy schemas")
	callCmd.Flags().Int64Var(&callProcNo, "procno", -1, "Procedure number (omit to run the demo sequence)")
	callCmd.Flags().StringVar(&callArg, "arg", "null", "Argument tree as JSON")
	callCmd.Flags().Int64Var(&callDebugLevel, "debug-level", 50, "Debug level set before the demo sequence")
}

func newXMLRPCClient() *xmlrpc.Client {
	return xmlrpc.NewClient(clientURL).WithTimeout(clientTimeout)
}

func runCall(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd, clientOutput)
	if err != nil {
		return err
	}
	client := newXMLRPCClient()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if callProcNo >= 0 {
		arg, err := value.ParseJSON([]byte(callArg))
		if err != nil {
			return fmt.Errorf("invalid --arg: %w", err)
		}
		reply, err := xlate(ctx, client, uint32(callProcNo), arg)
		if err != nil {
			return describeFault(err)
		}
		return printer.Print(output.ValueResult{Value: reply})
	}

	if err := client.SetDebugLevel(ctx, callDebugLevel); err != nil {
		return describeFault(err)
	}

	demo := []struct {
		name   string
		procno uint32
		arg    value.Value
	}{
		{"BAR", tstprog.ProcBar, value.MapOf(
			value.F("xx", value.Int(1)),
			value.F("a", value.MapOf(
				value.F("x", value.Int(40)),
				value.F("y", value.String("foobarbar")),
			)),
		)},
		{"FOO", tstprog.ProcFoo, value.MapOf(
			value.F("x", value.Int(42)),
			value.F("y", value.String("foobarb")),
		)},
	}

	for _, d := range demo {
		reply, err := xlate(ctx, client, d.procno, d.arg)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, describeFault(err))
		}
		if printer.Format() == output.FormatTable {
			printer.Printf("%s:\n", d.name)
		}
		if err := printer.Print(output.ValueResult{Value: reply}); err != nil {
			return err
		}
	}
	return nil
}

func xlate(ctx context.Context, client *xmlrpc.Client, procno uint32, arg value.Value) (value.Value, error) {
	req := &proxy.Request{
		Hostname: callHost,
		Port:     callPort,
		Program:  callProgram,
		ProcNo:   procno,
		Arg:      arg,
	}
	return client.Xlate(ctx, req.Value())
}

func runDebugLevel(cmd *cobra.Command, args []string) error {
	client := newXMLRPCClient()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		level, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid level %q", args[0])
		}
		if err := client.SetDebugLevel(ctx, level); err != nil {
			return describeFault(err)
		}
	}

	level, err := client.DebugLevel(ctx)
	if err != nil {
		return describeFault(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), level)
	return nil
}

func runProcedures(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd, clientOutput)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reply, err := newXMLRPCClient().Call(ctx, "xdr.listProcedures")
	if err != nil {
		return describeFault(err)
	}
	procs, err := procedureInfos(reply)
	if err != nil {
		return err
	}
	return printer.Print(output.ProcedureList(procs))
}

// procedureInfos converts the xdr.listProcedures reply back into
// ProcedureInfo records.
func procedureInfos(v value.Value) ([]schema.ProcedureInfo, error) {
	if v.Kind() != value.KindList {
		return nil, fmt.Errorf("xdr.listProcedures returned %s, want list", v.Kind())
	}
	items := v.Items()
	procs := make([]schema.ProcedureInfo, 0, len(items))
	for _, item := range items {
		var info schema.ProcedureInfo
		info.Program = stringMember(item, "program")
		info.Number = uint32(intMember(item, "number"))
		info.Version = uint32(intMember(item, "version"))
		info.ProcNo = uint32(intMember(item, "procno"))
		info.Name = stringMember(item, "name")
		info.Arg = stringMember(item, "arg")
		info.Res = stringMember(item, "res")
		procs = append(procs, info)
	}
	return procs, nil
}

func stringMember(v value.Value, name string) string {
	m, _ := v.Lookup(name)
	s, _ := m.AsString()
	return s
}

func intMember(v value.Value, name string) int64 {
	m, _ := v.Lookup(name)
	n, _ := m.AsInt()
	return n
}

// describeFault prefixes XML-RPC faults with the proxy error name.
func describeFault(err error) error {
	var f *xmlrpc.Fault
	if errors.As(err, &f) {
		if code := f.ErrorCode(); code != 0 {
			return fmt.Errorf("proxy fault %d (%s): %s", f.Code, code, f.Message)
		}
		return fmt.Errorf("XML-RPC fault %d: %s", f.Code, f.Message)
	}
	return err
}
