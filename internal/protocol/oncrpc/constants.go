// Package oncrpc implements the subset of ONC-RPC (RFC 5531) the proxy needs
// to reach a target program over TCP: AUTH_NULL call headers, record marking,
// reply parsing, a pooled client and a minimal dispatching server.
package oncrpc

// RPC protocol version per RFC 5531.
const RPCVersion = 2

// Message types.
const (
	RPCCall  = 0
	RPCReply = 1
)

// Reply states.
const (
	RPCMsgAccepted = 0
	RPCMsgDenied   = 1
)

// Accept states (RFC 5531 accept_stat).
const (
	RPCSuccess      = 0
	RPCProgUnavail  = 1
	RPCProgMismatch = 2
	RPCProcUnavail  = 3
	RPCGarbageArgs  = 4
	RPCSystemErr    = 5
)

// Reject states (RFC 5531 reject_stat).
const (
	RPCMismatch  = 0
	RPCAuthError = 1
)

// AuthNull is the AUTH_NULL flavor. It is the only flavor sent by the client.
const AuthNull = 0

// Record marking.
const (
	LastFragmentBit    = 0x80000000
	FragmentLengthMask = 0x7FFFFFFF

	// DefaultMaxRecordSize bounds a reassembled record when no limit is given.
	DefaultMaxRecordSize = 1 << 20
)

// maxAuthBodySize is the RFC 5531 limit on opaque_auth bodies.
const maxAuthBodySize = 400

// acceptStatName returns the RFC name of an accept_stat value.
func acceptStatName(stat uint32) string {
	switch stat {
	case RPCSuccess:
		return "SUCCESS"
	case RPCProgUnavail:
		return "PROG_UNAVAIL"
	case RPCProgMismatch:
		return "PROG_MISMATCH"
	case RPCProcUnavail:
		return "PROC_UNAVAIL"
	case RPCGarbageArgs:
		return "GARBAGE_ARGS"
	case RPCSystemErr:
		return "SYSTEM_ERR"
	default:
		return "UNKNOWN"
	}
}
