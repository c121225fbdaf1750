package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for proxy operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes (XML-RPC side)
	// ========================================================================
	AttrClientIP = "client.ip"

	// ========================================================================
	// XML-RPC attributes
	// ========================================================================
	AttrRequestID = "xmlrpc.request_id"
	AttrMethod    = "xmlrpc.method"
	AttrFault     = "xmlrpc.fault_code"

	// ========================================================================
	// Translation attributes
	// ========================================================================
	AttrProgram    = "xlate.program"
	AttrProcedure  = "xlate.procedure"
	AttrProcNo     = "xlate.procno"
	AttrDebugLevel = "xlate.debug_level"
	AttrOutcome    = "xlate.outcome"
	AttrArgBytes   = "xlate.arg_bytes"
	AttrReplyBytes = "xlate.reply_bytes"
	AttrErrorPath  = "xlate.error_path"

	// ========================================================================
	// ONC-RPC attributes
	// ========================================================================
	AttrRPCProgram = "rpc.program"
	AttrRPCVersion = "rpc.version"
	AttrRPCTarget  = "server.address"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanXMLRPCRequest = "xmlrpc.request"
	SpanTranslate     = "xlate.translate"
	SpanRPCCall       = "rpc.call"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// RequestID returns an attribute for the per-request correlation ID
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// Method returns an attribute for the XML-RPC method name
func Method(name string) attribute.KeyValue {
	return attribute.String(AttrMethod, name)
}

// FaultCode returns an attribute for an XML-RPC fault code
func FaultCode(code int) attribute.KeyValue {
	return attribute.Int(AttrFault, code)
}

// Program returns an attribute for the schema program name
func Program(name string) attribute.KeyValue {
	return attribute.String(AttrProgram, name)
}

// Procedure returns an attribute for the procedure name
func Procedure(name string) attribute.KeyValue {
	return attribute.String(AttrProcedure, name)
}

// ProcNo returns an attribute for the procedure number
func ProcNo(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrProcNo, int64(n))
}

// DebugLevel returns an attribute for the debug level in effect for a call
func DebugLevel(level int64) attribute.KeyValue {
	return attribute.Int64(AttrDebugLevel, level)
}

// Outcome returns an attribute for the translation outcome label
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// ArgBytes returns an attribute for the encoded argument size
func ArgBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrArgBytes, n)
}

// ReplyBytes returns an attribute for the reply body size
func ReplyBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrReplyBytes, n)
}

// ErrorPath returns an attribute for the field path of a schema error
func ErrorPath(path string) attribute.KeyValue {
	return attribute.String(AttrErrorPath, path)
}

// RPCProgram returns an attribute for the ONC-RPC program number
func RPCProgram(prog uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCProgram, int64(prog))
}

// RPCVersion returns an attribute for the ONC-RPC program version
func RPCVersion(vers uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCVersion, int64(vers))
}

// RPCTarget returns an attribute for the host:port of the ONC-RPC server
func RPCTarget(addr string) attribute.KeyValue {
	return attribute.String(AttrRPCTarget, addr)
}

// StartTranslateSpan starts the span covering one xdr.xlate call.
func StartTranslateSpan(ctx context.Context, program string, procno uint32, target string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Program(program),
		ProcNo(procno),
		RPCTarget(target),
	}
	allAttrs = append(allAttrs, attrs...)

	return startSpan(ctx, SpanTranslate, trace.WithAttributes(allAttrs...))
}

// StartRPCSpan starts a client span for a single ONC-RPC exchange.
func StartRPCSpan(ctx context.Context, target string, prog, vers, proc uint32) (context.Context, trace.Span) {
	return startSpan(ctx, SpanRPCCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			RPCTarget(target),
			RPCProgram(prog),
			RPCVersion(vers),
			ProcNo(proc),
		))
}

// StartRequestSpan starts the server span for an inbound XML-RPC request.
func StartRequestSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Method(method)}, attrs...)
	return startSpan(ctx, SpanXMLRPCRequest,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(allAttrs...))
}
