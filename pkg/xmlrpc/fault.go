package xmlrpc

import (
	"errors"
	"fmt"

	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
)

// Transport-level fault codes (specification for fault code interoperability,
// xmlrpc-epi).
const (
	FaultParseError     = -32700
	FaultMethodNotFound = -32601
	FaultInvalidParams  = -32602
	FaultInternalError  = -32603
)

// Fault is an XML-RPC fault response. Translation failures use the
// ErrorCode value as the fault code (1-6).
type Fault struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.Message)
}

// ErrorCode returns the translation error code carried by the fault, or 0
// for transport-level faults.
func (f *Fault) ErrorCode() xlateerrors.ErrorCode {
	code := xlateerrors.ErrorCode(f.Code)
	if code >= xlateerrors.ErrInvalidArgument && code <= xlateerrors.ErrRemote {
		return code
	}
	return 0
}

// NewFault creates a fault with a formatted message.
func NewFault(code int, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FaultFromError maps err to the fault sent to the caller. A *Fault passes
// through, an *XlateError keeps its code, anything else is an internal error.
func FaultFromError(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	if code := xlateerrors.CodeOf(err); code != 0 {
		return &Fault{Code: int(code), Message: err.Error()}
	}
	return &Fault{Code: FaultInternalError, Message: err.Error()}
}
