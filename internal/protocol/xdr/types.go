// Package xdr provides generic XDR (External Data Representation) encoding and
// decoding primitives per RFC 4506.
//
// XDR is the serialization format used by ONC-RPC programs. The schema-driven
// translation codec builds on these primitives; the ONC-RPC transport uses
// them for record and header handling.
//
// Key characteristics of XDR:
//   - Big-endian byte order for all multi-byte integers
//   - 4-byte alignment for all data types
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded to 4-byte boundaries
//
// This package has no dependencies on other xdrproxy packages.
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
// https://tools.ietf.org/html/rfc4506
package xdr

import "errors"

// Unit is the XDR basic block size in bytes.
const Unit = 4

// ErrBadBool is returned when a boolean on the wire is neither 0 nor 1.
var ErrBadBool = errors.New("xdr: boolean value out of range")

// ErrTooLong is returned when a length prefix exceeds the permitted maximum.
var ErrTooLong = errors.New("xdr: length exceeds maximum")

// Padding returns the number of zero bytes that follow n bytes of
// variable-length data to reach a 4-byte boundary.
func Padding(n uint32) uint32 {
	return (Unit - (n % Unit)) % Unit
}
