// Package errors defines the error taxonomy of the translation proxy.
//
// Every failure surfaced by translate or setDebugLevel is an *XlateError
// carrying an ErrorCode; transport layers map the code to their own fault
// representation. This is a leaf package so that the codec, the ONC-RPC
// transport and the proxy can all produce coded errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the class of failure.
type ErrorCode int

const (
	// ErrInvalidArgument indicates malformed control or request input
	// (negative debug level, missing request keys, bad port).
	ErrInvalidArgument ErrorCode = iota + 1

	// ErrUnknownProcedure indicates no schema is registered for the
	// program/procno pair.
	ErrUnknownProcedure

	// ErrSchemaMismatch indicates the argument tree does not match the
	// procedure's argument schema. Path names the first offending field.
	ErrSchemaMismatch

	// ErrConnection indicates a transport failure talking to the target
	// (unreachable, reset, timeout).
	ErrConnection

	// ErrDecode indicates the reply does not parse per the reply schema.
	ErrDecode

	// ErrRemote indicates the target rejected the call at the RPC layer
	// (PROG_UNAVAIL, PROC_UNAVAIL, GARBAGE_ARGS, MSG_DENIED, ...).
	ErrRemote
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrUnknownProcedure:
		return "UnknownProcedure"
	case ErrSchemaMismatch:
		return "SchemaMismatch"
	case ErrConnection:
		return "ConnectionError"
	case ErrDecode:
		return "DecodeError"
	case ErrRemote:
		return "RemoteError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(e))
	}
}

// XlateError is a coded proxy error.
type XlateError struct {
	Code    ErrorCode
	Message string
	// Path is the dotted field path for schema mismatches (a.y, items[2]).
	Path string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *XlateError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *XlateError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(format string, args ...any) *XlateError {
	return &XlateError{Code: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewUnknownProcedureError creates an UnknownProcedure error for a
// program/procno pair.
func NewUnknownProcedureError(program string, procno uint32) *XlateError {
	return &XlateError{
		Code:    ErrUnknownProcedure,
		Message: fmt.Sprintf("no schema registered for program %q procedure %d", program, procno),
	}
}

// NewUnknownProgramError creates an UnknownProcedure error for a program
// name that is not registered at all.
func NewUnknownProgramError(program string) *XlateError {
	return &XlateError{
		Code:    ErrUnknownProcedure,
		Message: fmt.Sprintf("no schema registered for program %q", program),
	}
}

// NewSchemaMismatchError creates a SchemaMismatch error naming the field path.
func NewSchemaMismatchError(path, format string, args ...any) *XlateError {
	return &XlateError{
		Code:    ErrSchemaMismatch,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// NewConnectionError wraps a transport failure towards target.
func NewConnectionError(target string, err error) *XlateError {
	return &XlateError{
		Code:    ErrConnection,
		Message: fmt.Sprintf("call to %s failed", target),
		Err:     err,
	}
}

// NewDecodeError wraps a reply parsing failure.
func NewDecodeError(path string, err error) *XlateError {
	return &XlateError{
		Code:    ErrDecode,
		Message: "reply does not match schema",
		Path:    path,
		Err:     err,
	}
}

// NewRemoteError reports an RPC-level rejection by the target.
func NewRemoteError(format string, args ...any) *XlateError {
	return &XlateError{Code: ErrRemote, Message: fmt.Sprintf(format, args...)}
}

// ============================================================================
// Error Type Checking Helpers
// ============================================================================

// CodeOf returns the ErrorCode carried by err (anywhere in its chain), or 0
// if err is not an *XlateError.
func CodeOf(err error) ErrorCode {
	var xe *XlateError
	if errors.As(err, &xe) {
		return xe.Code
	}
	return 0
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// PathOf returns the field path of a coded error, or "".
func PathOf(err error) string {
	var xe *XlateError
	if errors.As(err, &xe) {
		return xe.Path
	}
	return ""
}
