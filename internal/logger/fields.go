package logger

import (
	"encoding/hex"
	"log/slog"
	"strings"
)

// Standard field keys for structured logging.
// Use these keys consistently so proxy logs can be aggregated and queried.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request identification
	KeyRequestID = "request_id"
	KeyMethod    = "method"    // XML-RPC method name (xdr.xlate, system.setDebugLevel)
	KeyClientIP  = "client_ip" // Caller address of the XML-RPC request

	// Target endpoint and procedure
	KeyTarget    = "target"    // host:port of the ONC-RPC target
	KeyProgram   = "program"   // Program name as registered in the schema
	KeyProgNum   = "prog_num"  // ONC-RPC program number
	KeyVersion   = "version"   // ONC-RPC program version
	KeyProcedure = "procedure" // Procedure name
	KeyProcNo    = "procno"    // Procedure number
	KeyXID       = "xid"

	// Payload
	KeyArg       = "arg"
	KeyReply     = "reply"
	KeyPath      = "path" // Field path inside an argument tree (a.y, items[2])
	KeyBytes     = "bytes"
	KeyWire      = "wire" // Hex dump of an XDR buffer
	KeyOutcome   = "outcome"
	KeyDebugLvl  = "debug_level"
	KeySchemaSrc = "schema_source"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// RequestID returns a slog.Attr for the per-call request identifier.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Target returns a slog.Attr for the ONC-RPC target address.
func Target(addr string) slog.Attr {
	return slog.String(KeyTarget, addr)
}

// Program returns a slog.Attr for the program name.
func Program(name string) slog.Attr {
	return slog.String(KeyProgram, name)
}

// ProcNo returns a slog.Attr for a procedure number.
func ProcNo(n uint32) slog.Attr {
	return slog.Uint64(KeyProcNo, uint64(n))
}

// XID returns a slog.Attr for an ONC-RPC transaction id.
func XID(xid uint32) slog.Attr {
	return slog.Uint64(KeyXID, uint64(xid))
}

// Wire returns a slog.Attr holding a hex dump of an XDR buffer, split into
// 4-byte XDR units: "00000001 00000028 00000009 666f6f62 ...".
func Wire(b []byte) slog.Attr {
	var sb strings.Builder
	sb.Grow(len(b)*2 + len(b)/4)
	for i := 0; i < len(b); i += 4 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(hex.EncodeToString(b[i:min(i+4, len(b))]))
	}
	return slog.String(KeyWire, sb.String())
}

// Err returns a slog.Attr for an error; nil errors produce an empty attr
// which the handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
