package protocol

import (
	"bytes"
	"maps"
	"regexp"
	"slices"

	"github.com/woozymasta/gsquery/internal/buffer"
)

// Byte offset of the fragment id: type, session id and the "splitnum\0" filler.
const gamespy3HeaderSize = 1 + 4 + 9

var gamespy3TrailingVar = regexp.MustCompile(`\x00[^\x00]+\x00$`)

// extractGameSpy3 strips the frame headers and returns the payloads ordered by fragment id.
func extractGameSpy3(frames [][]byte) ([][]byte, error) {
	parts := make(map[int][]byte, len(frames))

	for _, f := range frames {
		r := newReader(buffer.New(f, buffer.BigEndian))
		r.u8()  // type
		r.u32() // session
		r.skip(9)
		id := r.u8()
		r.skip(1)
		if r.err != nil || len(f) < gamespy3HeaderSize+2 {
			return nil, &FrameError{What: "gamespy3 header", Actual: f}
		}

		parts[int(id)] = r.b.Remaining()
	}

	out := make([][]byte, 0, len(parts))
	for _, id := range slices.Sorted(maps.Keys(parts)) {
		out = append(out, bytes.Clone(parts[id]))
	}

	return out, nil
}

// dedupGameSpy3 removes the variable names a server repeats at fragment
// boundaries so the concatenated payload parses as one list.
func dedupGameSpy3(p [][]byte) [][]byte {
	for i := 0; i < len(p)-1; i++ {
		if len(p[i]) == 0 {
			continue
		}

		first := p[i][:len(p[i])-1]
		start := 1
		if j := bytes.LastIndexByte(first, 0); j >= 0 {
			start = j + 1
		}
		firstVar := first[min(start, len(first)):]

		second := p[i+1]
		start = 2
		if j := bytes.IndexByte(second, 0); j >= 0 {
			start = j + 2
		}
		second = second[min(start, len(second)):]

		var secondVar []byte
		if k := bytes.IndexByte(second, 0); k >= 0 {
			secondVar = second[:k]
		}

		if len(firstVar) > 0 && bytes.Contains(secondVar, firstVar) {
			p[i] = gamespy3TrailingVar.ReplaceAll(p[i], []byte{0})
		}
	}

	for x := 1; x < len(p); x++ {
		prefix := p[x]
		if k := bytes.IndexByte(prefix, 0); k >= 0 {
			prefix = prefix[:k]
		}
		if len(prefix) == 0 || !bytes.Contains(p[x-1], prefix) {
			continue
		}

		stripped := bytes.ReplaceAll(p[x], prefix, nil)
		p[x] = stripped[min(2, len(stripped)):]
	}

	return p
}
