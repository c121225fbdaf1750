package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ============================================================================
// XDR Decoding Helpers - Wire Format → Go Types
// ============================================================================

// DecodeOpaque decodes variable-length opaque data.
//
// Format: [length:uint32][data:length bytes][padding:0-3 bytes]
//
// maxLen bounds the length prefix; a prefix above it fails with ErrTooLong
// before any allocation, protecting against hostile or corrupt input.
func DecodeOpaque(reader io.Reader, maxLen uint32) ([]byte, error) {
	length, err := DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > maxLen {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d: %w", length, maxLen, ErrTooLong)
	}
	return DecodeFixedOpaque(reader, length)
}

// DecodeFixedOpaque decodes exactly n bytes of opaque data and skips the
// trailing padding.
func DecodeFixedOpaque(reader io.Reader, n uint32) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	// XDR padding is at most 3 bytes
	if pad := Padding(n); pad > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(reader, padBuf[:pad]); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}

	return data, nil
}

// DecodeString decodes an XDR string bounded by maxLen bytes.
func DecodeString(reader io.Reader, maxLen uint32) (string, error) {
	data, err := DecodeOpaque(reader, maxLen)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUint32 decodes an unsigned 32-bit integer.
func DecodeUint32(reader io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(reader, b[:]); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// DecodeInt32 decodes a signed 32-bit integer.
func DecodeInt32(reader io.Reader) (int32, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// DecodeUint64 decodes an unsigned hyper integer.
func DecodeUint64(reader io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(reader, b[:]); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// DecodeInt64 decodes a hyper integer.
func DecodeInt64(reader io.Reader) (int64, error) {
	v, err := DecodeUint64(reader)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// DecodeBool decodes an XDR boolean. Values other than 0 and 1 are
// rejected with ErrBadBool.
func DecodeBool(reader io.Reader) (bool, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrBadBool, v)
	}
}
