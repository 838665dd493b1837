// Package fake builds wire frames of every supported protocol and runs loopback
// servers that answer with them. It backs the protocol and query tests.
package fake

import (
	"encoding/binary"
	"math"
)

// Writer appends scalars and strings to a frame.
type Writer struct {
	order binary.AppendByteOrder
	buf   []byte
}

// LE returns a little endian writer.
func LE() *Writer { return &Writer{order: binary.LittleEndian} }

// BE returns a big endian writer.
func BE() *Writer { return &Writer{order: binary.BigEndian} }

// U8 appends one byte.
func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Bool appends 1 or 0.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

// U16 appends an unsigned 16-bit integer.
func (w *Writer) U16(v uint16) *Writer {
	w.buf = w.order.AppendUint16(w.buf, v)
	return w
}

// I16 appends a signed 16-bit integer.
func (w *Writer) I16(v int16) *Writer { return w.U16(uint16(v)) }

// U32 appends an unsigned 32-bit integer.
func (w *Writer) U32(v uint32) *Writer {
	w.buf = w.order.AppendUint32(w.buf, v)
	return w
}

// I32 appends a signed 32-bit integer.
func (w *Writer) I32(v int32) *Writer { return w.U32(uint32(v)) }

// U64 appends an unsigned 64-bit integer.
func (w *Writer) U64(v uint64) *Writer {
	w.buf = w.order.AppendUint64(w.buf, v)
	return w
}

// F32 appends an IEEE 754 float.
func (w *Writer) F32(v float32) *Writer { return w.U32(math.Float32bits(v)) }

// Raw appends bytes as they are.
func (w *Writer) Raw(p []byte) *Writer {
	w.buf = append(w.buf, p...)
	return w
}

// Str appends a string without terminator.
func (w *Writer) Str(s string) *Writer { return w.Raw([]byte(s)) }

// CString appends a NUL terminated string.
func (w *Writer) CString(s string) *Writer { return w.Str(s).U8(0) }

// Pascal appends a string prefixed by its one byte length.
func (w *Writer) Pascal(s string) *Writer { return w.U8(uint8(len(s))).Str(s) }

// Long appends a string prefixed by its 32-bit length.
func (w *Writer) Long(s string) *Writer { return w.U32(uint32(len(s))).Str(s) }

// Bytes returns a copy of the frame.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}
