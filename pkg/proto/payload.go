package proto

import (
	"encoding/binary"
	"fmt"
)

// PayloadWriter builds a fixed-width big-endian command payload.
// The zero value is ready to use.
type PayloadWriter struct {
	buf []byte
}

// U8 appends an unsigned 8-bit field.
func (w *PayloadWriter) U8(v uint8) *PayloadWriter {
	w.buf = append(w.buf, v)
	return w
}

// U16 appends an unsigned 16-bit field.
func (w *PayloadWriter) U16(v uint16) *PayloadWriter {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

// U32 appends an unsigned 32-bit field.
func (w *PayloadWriter) U32(v uint32) *PayloadWriter {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
	return w
}

// I32 appends a signed 32-bit field.
func (w *PayloadWriter) I32(v int32) *PayloadWriter {
	return w.U32(uint32(v))
}

// Bytes appends raw bytes.
func (w *PayloadWriter) Bytes(p []byte) *PayloadWriter {
	w.buf = append(w.buf, p...)
	return w
}

// Payload returns the accumulated payload.
func (w *PayloadWriter) Payload() []byte {
	return w.buf
}

// PayloadReader consumes a fixed-width big-endian response payload.
// Reads past the end set a sticky error and return zero values, so a
// parse can run to completion and check Err once.
type PayloadReader struct {
	buf []byte
	off int
	err error
}

// NewPayloadReader wraps a response payload for field-by-field decoding.
func NewPayloadReader(p []byte) *PayloadReader {
	return &PayloadReader{buf: p}
}

func (r *PayloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: payload truncated at offset %d (need %d of %d bytes)",
			ErrProtocol, r.off, n, len(r.buf))
		return nil
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p
}

// U8 reads an unsigned 8-bit field.
func (r *PayloadReader) U8() uint8 {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

// U16 reads an unsigned 16-bit field.
func (r *PayloadReader) U16() uint16 {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint16(p)
}

// U32 reads an unsigned 32-bit field.
func (r *PayloadReader) U32() uint32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint32(p)
}

// I32 reads a signed 32-bit field.
func (r *PayloadReader) I32() int32 {
	return int32(r.U32())
}

// String reads a length-prefixed (16-bit) string field.
func (r *PayloadReader) String() string {
	n := int(r.U16())
	p := r.take(n)
	if p == nil {
		return ""
	}
	return string(p)
}

// Rest returns all unconsumed bytes.
func (r *PayloadReader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	p := r.buf[r.off:]
	r.off = len(r.buf)
	return p
}

// Remaining reports the number of unconsumed bytes.
func (r *PayloadReader) Remaining() int {
	return len(r.buf) - r.off
}

// Err returns the sticky decode error, if any.
func (r *PayloadReader) Err() error {
	return r.err
}

// AppendString appends a length-prefixed (16-bit) string field to the writer.
func (w *PayloadWriter) AppendString(s string) *PayloadWriter {
	w.U16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return w
}
