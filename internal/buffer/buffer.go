// Package buffer implements a positional byte cursor used by every protocol decoder.
package buffer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-faster/errors"
)

// Endian selects the byte order of multi-byte scalar reads.
type Endian uint8

const (
	// LittleEndian is the default order of Source, SA-MP and FiveM payloads.
	LittleEndian Endian = iota
	// BigEndian is used by GameSpy3 and RakNet.
	BigEndian
)

// String implements fmt.Stringer.
func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}

	return "little"
}

// ErrUnderrun is matched by every error returned when a read asks for more bytes than remain.
var ErrUnderrun = errors.New("buffer underrun")

// UnderrunError carries the size of a read that could not be satisfied.
type UnderrunError struct {
	Requested int
	Remaining int
}

func (e *UnderrunError) Error() string {
	return fmt.Sprintf("buffer underrun: requested %d bytes, %d remaining", e.Requested, e.Remaining)
}

// Is reports ErrUnderrun as the sentinel of this error.
func (e *UnderrunError) Is(target error) bool {
	return target == ErrUnderrun
}

// Buffer is a read cursor over an immutable byte slice.
// The logical length may shrink from the tail with ReadLastByte, independent of the cursor.
type Buffer struct {
	data   []byte
	length int
	index  int
	endian Endian
}

// New creates a buffer over data. The slice is not copied and must not be mutated afterwards.
func New(data []byte, endian Endian) *Buffer {
	return &Buffer{
		data:   data,
		length: len(data),
		endian: endian,
	}
}

// NewString is a shorthand for New([]byte(s), endian).
func NewString(s string, endian Endian) *Buffer {
	return New([]byte(s), endian)
}

// ConvertToBigEndian switches all following scalar reads to big-endian order.
func (b *Buffer) ConvertToBigEndian() {
	b.endian = BigEndian
}

// Endian returns the current byte order.
func (b *Buffer) Endian() Endian {
	return b.endian
}

// Len returns the number of unread bytes, floored at zero.
func (b *Buffer) Len() int {
	if n := b.length - b.index; n > 0 {
		return n
	}

	return 0
}

// Size returns the logical length of the buffer.
func (b *Buffer) Size() int {
	return b.length
}

// Position returns the cursor.
func (b *Buffer) Position() int {
	return b.index
}

// Data returns the whole logical content regardless of the cursor.
func (b *Buffer) Data() []byte {
	return b.data[:b.length]
}

// Remaining returns the unread bytes without advancing.
func (b *Buffer) Remaining() []byte {
	if b.index >= b.length {
		return nil
	}

	return b.data[b.index:b.length]
}

// Reset moves the cursor back to the start.
func (b *Buffer) Reset() {
	b.index = 0
}

// Read returns the next n bytes and advances the cursor.
func (b *Buffer) Read(n int) ([]byte, error) {
	if n < 0 {
		n = 0
	}
	if n > b.Len() {
		return nil, &UnderrunError{Requested: n, Remaining: b.Len()}
	}

	out := b.data[b.index : b.index+n]
	b.index += n

	return out, nil
}

// LookAhead returns up to n of the next bytes without advancing the cursor.
func (b *Buffer) LookAhead(n int) []byte {
	if n > b.Len() {
		n = b.Len()
	}
	if n <= 0 {
		return nil
	}

	return b.data[b.index : b.index+n]
}

// Skip advances the cursor by n bytes without an underrun check; the cursor
// stops at the end and later reads fail instead.
func (b *Buffer) Skip(n int) {
	if n > 0 {
		b.index = min(b.index+n, b.length)
	}
}

// JumpTo moves the cursor to pos, clamped to the last byte of the buffer.
func (b *Buffer) JumpTo(pos int) {
	b.index = max(min(pos, b.length-1), 0)
}

// ReadLastByte pops the final byte and shrinks the logical length by one.
func (b *Buffer) ReadLastByte() (byte, error) {
	if b.length == 0 {
		return 0, &UnderrunError{Requested: 1}
	}

	b.length--
	if b.index > b.length {
		b.index = b.length
	}

	return b.data[b.length], nil
}

// ReadBytes returns the bytes up to the next delim and consumes the delimiter.
// Without a delimiter the rest of the buffer is returned.
func (b *Buffer) ReadBytes(delim byte) []byte {
	rest := b.Remaining()
	if rest == nil {
		return nil
	}

	i := bytes.IndexByte(rest, delim)
	if i < 0 {
		b.index = b.length
		return rest
	}

	b.index += i + 1

	return rest[:i]
}

// ReadString is ReadBytes converted to a string.
func (b *Buffer) ReadString(delim byte) string {
	return string(b.ReadBytes(delim))
}

// ReadCString reads a NUL terminated string.
func (b *Buffer) ReadCString() string {
	return b.ReadString(0)
}

// ReadPascalString reads a length byte followed by the string.
// The returned string is shortened by offset bytes; with readOffset only the
// shortened length is consumed from the buffer, otherwise the full length is.
func (b *Buffer) ReadPascalString(offset int, readOffset bool) (string, error) {
	n, err := b.ReadUint8()
	if err != nil {
		return "", err
	}

	size := max(int(n)-offset, 0)
	if readOffset {
		out, err := b.Read(size)
		return string(out), err
	}

	out, err := b.Read(int(n))
	if err != nil {
		return "", err
	}
	if size > len(out) {
		size = len(out)
	}

	return string(out[:size]), nil
}

func (b *Buffer) order() binary.ByteOrder {
	if b.endian == BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// ReadUint8 reads one unsigned byte.
func (b *Buffer) ReadUint8() (uint8, error) {
	p, err := b.Read(1)
	if err != nil {
		return 0, err
	}

	return p[0], nil
}

// ReadInt8 reads one signed byte.
func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads an unsigned 16-bit integer.
func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.Read(2)
	if err != nil {
		return 0, err
	}

	return b.order().Uint16(p), nil
}

// ReadInt16 reads a signed 16-bit integer.
func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads an unsigned 32-bit integer.
func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.Read(4)
	if err != nil {
		return 0, err
	}

	return b.order().Uint32(p), nil
}

// ReadInt32 reads a signed 32-bit integer.
func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads an unsigned 64-bit integer.
func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.Read(8)
	if err != nil {
		return 0, err
	}

	return b.order().Uint64(p), nil
}

// ReadInt64 reads a signed 64-bit integer.
func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single precision float.
func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}
