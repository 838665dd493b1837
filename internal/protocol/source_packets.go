package protocol

import (
	"bytes"
	"compress/bzip2"
	"io"
	"maps"
	"slices"

	"github.com/woozymasta/gsquery/internal/buffer"
)

const (
	sourceSingle int32 = -1
	sourceSplit  int32 = -2

	sourceCompressedFlag uint32 = 0x80000000
)

var sourceEnvelope = []byte{0xFF, 0xFF, 0xFF, 0xFF}

type sourceEntry struct {
	single []byte
	frags  [][]byte
	id     int32
}

// detectEngine returns GoldSource when a single packet carries the old info marker.
func detectEngine(frames [][]byte, configured Engine) Engine {
	if configured == EngineGoldSource {
		return EngineGoldSource
	}

	for _, f := range frames {
		if len(f) > 4 && bytes.HasPrefix(f, sourceEnvelope) && f[4] == sourceMarkerGoldInfo {
			return EngineGoldSource
		}
	}

	return EngineSource
}

// assembleSource turns raw frames into logical payloads, each starting with its
// response marker. Split packets are grouped by id and reassembled.
func assembleSource(frames [][]byte, engine Engine) ([][]byte, error) {
	var (
		entries []*sourceEntry
		byID    = make(map[int32]*sourceEntry)
	)

	for _, f := range frames {
		b := buffer.New(f, buffer.LittleEndian)
		header, err := b.ReadInt32()
		if err != nil {
			return nil, &FrameError{What: "source header", Expected: sourceEnvelope, Actual: f}
		}

		switch header {
		case sourceSingle:
			entries = append(entries, &sourceEntry{single: b.Remaining()})
		case sourceSplit:
			id, err := b.ReadInt32()
			if err != nil {
				return nil, &FrameError{What: "split packet id", Actual: f}
			}
			e, ok := byID[id]
			if !ok {
				e = &sourceEntry{id: id}
				byID[id] = e
				entries = append(entries, e)
			}
			e.frags = append(e.frags, b.Remaining())
		default:
			return nil, &FrameError{What: "source header", Expected: sourceEnvelope, Actual: f[:4]}
		}
	}

	out := make([][]byte, 0, len(entries))
	for _, e := range entries {
		if e.frags == nil {
			out = append(out, e.single)
			continue
		}

		payload, err := assembleSplit(e.id, e.frags, engine)
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}

	return out, nil
}

// assembleSplit orders the fragments of one split packet by sequence number,
// decompresses them when flagged and strips the inner envelope of fragment zero.
func assembleSplit(id int32, frags [][]byte, engine Engine) ([]byte, error) {
	parts := make(map[int][]byte, len(frags))
	compressed := uint32(id)&sourceCompressedFlag != 0

	for _, f := range frags {
		r := newReader(buffer.New(f, buffer.LittleEndian))

		var (
			number int
			body   []byte
		)

		switch {
		case engine == EngineGoldSource:
			number = int(r.u8() >> 4)
			body = r.b.Remaining()

		case compressed:
			r.skip(1) // total
			number = int(r.u8())
			size := int(r.i32())
			r.skip(4) // checksum, unreliable across split responses
			if err := r.check("compressed fragment header"); err != nil {
				return nil, err
			}

			data, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(r.b.Remaining())))
			if err != nil {
				return nil, &DecompressionError{Err: err}
			}
			if len(data) != size {
				return nil, &DecompressionError{Expected: size, Actual: len(data)}
			}
			body = data

		default:
			r.skip(1) // total
			number = int(r.u8())
			r.skip(2) // max packet size
			body = r.b.Remaining()
		}

		if err := r.check("split fragment header"); err != nil {
			return nil, err
		}

		if number == 0 {
			body = bytes.TrimPrefix(body, sourceEnvelope)
		}
		parts[number] = body
	}

	var out []byte
	for _, n := range slices.Sorted(maps.Keys(parts)) {
		out = append(out, parts[n]...)
	}

	return out, nil
}
