package protocol

import (
	"github.com/go-faster/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/woozymasta/gsquery/internal/buffer"
)

// reader wraps a buffer and keeps the first read error, so decoders can read
// a whole record and check once at the end.
type reader struct {
	b   *buffer.Buffer
	err error
}

func newReader(b *buffer.Buffer) *reader {
	return &reader{b: b}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// check returns the first error wrapped with the name of the decoded record.
func (r *reader) check(what string) error {
	if r.err == nil {
		return nil
	}

	return errors.Wrap(r.err, what)
}

func (r *reader) skip(n int) {
	r.b.Skip(n)
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}

	p, err := r.b.Read(n)
	r.fail(err)

	return p
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadUint8()
	r.fail(err)

	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadUint16()
	r.fail(err)

	return v
}

func (r *reader) i16() int16 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadInt16()
	r.fail(err)

	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadUint32()
	r.fail(err)

	return v
}

func (r *reader) i32() int32 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadInt32()
	r.fail(err)

	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadUint64()
	r.fail(err)

	return v
}

func (r *reader) f32() float32 {
	if r.err != nil {
		return 0
	}

	v, err := r.b.ReadFloat32()
	r.fail(err)

	return v
}

func (r *reader) cstr() string {
	if r.err != nil {
		return ""
	}

	return r.b.ReadCString()
}

func (r *reader) pascal(offset int, readOffset bool) string {
	if r.err != nil {
		return ""
	}

	s, err := r.b.ReadPascalString(offset, readOffset)
	r.fail(err)

	return s
}

// latin1 converts ISO 8859-1 text, as sent by GameSpy3 and SA-MP servers, to UTF-8.
func latin1(s string) string {
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}

	return out
}
