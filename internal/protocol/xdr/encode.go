package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ============================================================================
// XDR Encoding Helpers - Go Types → Wire Format
// ============================================================================

// WriteOpaque encodes variable-length opaque data: length + data + padding.
//
// Per RFC 4506 Section 4.10:
//
//	[length:uint32][data:length bytes][padding:0-3 bytes]
//
// Example:
//
//	[]byte{0x01, 0x02, 0x03} → [00 00 00 03][01 02 03][00] (8 bytes total)
func WriteOpaque(buf *bytes.Buffer, data []byte) error {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return fmt.Errorf("write opaque: %w", ErrTooLong)
	}
	WriteUint32(buf, uint32(len(data)))
	buf.Write(data)
	WritePadding(buf, uint32(len(data)))
	return nil
}

// WriteFixedOpaque encodes fixed-length opaque data of exactly n bytes,
// followed by padding. No length prefix is written (RFC 4506 Section 4.9).
func WriteFixedOpaque(buf *bytes.Buffer, data []byte, n uint32) error {
	if uint32(len(data)) != n {
		return fmt.Errorf("write fixed opaque: have %d bytes, want %d", len(data), n)
	}
	buf.Write(data)
	WritePadding(buf, n)
	return nil
}

// WriteString encodes a string: length + bytes + padding (RFC 4506 Section 4.11).
//
// Example:
//
//	"abc" (3 bytes)  → [00 00 00 03][61 62 63][00] (8 bytes total)
//	"test" (4 bytes) → [00 00 00 04][74 65 73 74] (8 bytes total)
func WriteString(buf *bytes.Buffer, s string) error {
	if uint64(len(s)) > uint64(^uint32(0)) {
		return fmt.Errorf("write string: %w", ErrTooLong)
	}
	WriteUint32(buf, uint32(len(s)))
	buf.WriteString(s)
	WritePadding(buf, uint32(len(s)))
	return nil
}

// WritePadding writes the zero bytes that align dataLen bytes of
// variable-length data to a 4-byte boundary.
func WritePadding(buf *bytes.Buffer, dataLen uint32) {
	var zero [Unit]byte
	buf.Write(zero[:Padding(dataLen)])
}

// WriteUint32 encodes an unsigned integer, big-endian (RFC 4506 Section 4.2).
func WriteUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// WriteInt32 encodes a signed integer, two's complement big-endian
// (RFC 4506 Section 4.1).
func WriteInt32(buf *bytes.Buffer, v int32) {
	WriteUint32(buf, uint32(v))
}

// WriteUint64 encodes an unsigned hyper integer (RFC 4506 Section 4.5).
func WriteUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// WriteInt64 encodes a hyper integer (RFC 4506 Section 4.5).
func WriteInt64(buf *bytes.Buffer, v int64) {
	WriteUint64(buf, uint64(v))
}

// WriteBool encodes a boolean as the enum {FALSE=0, TRUE=1} (RFC 4506 Section 4.4).
func WriteBool(buf *bytes.Buffer, v bool) {
	if v {
		WriteUint32(buf, 1)
		return
	}
	WriteUint32(buf, 0)
}
