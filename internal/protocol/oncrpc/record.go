package oncrpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrRecordTooLarge is returned when a reassembled record exceeds the limit.
var ErrRecordTooLarge = errors.New("record exceeds maximum size")

// WriteRecord writes msg as a single last fragment.
//
// Per RFC 5531 Section 11 the 4-byte header carries the last-fragment flag
// in bit 31 and the fragment length in bits 0-30.
func WriteRecord(w io.Writer, msg []byte) error {
	if uint64(len(msg)) > FragmentLengthMask {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(msg))
	}

	framed := make([]byte, 4+len(msg))
	binary.BigEndian.PutUint32(framed[0:4], LastFragmentBit|uint32(len(msg)))
	copy(framed[4:], msg)

	_, err := w.Write(framed)
	return err
}

// ReadRecord reads fragments until the last-fragment flag is seen and returns
// the reassembled record. maxSize bounds the total record size; zero means
// DefaultMaxRecordSize.
//
// A clean close before any header byte returns io.EOF; a close inside a
// fragment returns io.ErrUnexpectedEOF.
func ReadRecord(r io.Reader, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxRecordSize
	}

	var record []byte
	for {
		var header [4]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF && record != nil {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		headerVal := binary.BigEndian.Uint32(header[:])
		length := headerVal & FragmentLengthMask

		total := uint64(len(record)) + uint64(length)
		if total > uint64(maxSize) {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, total, maxSize)
		}

		start := len(record)
		if record == nil {
			record = make([]byte, 0, length)
		}
		record = append(record, make([]byte, length)...)
		if _, err := io.ReadFull(r, record[start:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if headerVal&LastFragmentBit != 0 {
			return record, nil
		}
	}
}
