package protocol

import (
	"bytes"
	"fmt"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"github.com/woozymasta/gsquery/internal/buffer"
	"github.com/woozymasta/gsquery/internal/result"
)

var arma3DLCs = map[string]string{
	"3a3f5ff9": "Karts",
	"2d4eada7": "Marksmen",
	"873ada67": "Helicopters",
	"b6d4451":  "Zeus",
	"e5ad6f6c": "Apex",
	"1f2e3b6f": "Jets",
	"128b066b": "Laws of War",
	"1954e272": "Malden",
	"70a109b7": "Tac-Ops",
	"dfc0778f": "Tanks",
	"2dd9b92b": "Contact",
	"2930da71": "Art of War",
}

// unescapeArma3 restores the escape sequences of the binary rules blob.
// Replacements run in order, each over the output of the previous one.
func unescapeArma3(p []byte) []byte {
	p = bytes.ReplaceAll(p, []byte{0x01, 0x01}, []byte{0x01})
	p = bytes.ReplaceAll(p, []byte{0x01, 0x02}, []byte{0x00})
	p = bytes.ReplaceAll(p, []byte{0x01, 0x03}, []byte{0xFF})

	return p
}

// decodeArma3Rules reads the binary blob Arma 3 servers spread over the values
// of their rules response.
func decodeArma3Rules(b *buffer.Buffer, res *result.Result) error {
	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	count := r.i16()
	if err := r.check("arma3 rules count"); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	var blob []byte
	for b.Len() > 0 {
		b.ReadCString()
		blob = append(blob, b.ReadBytes(0)...)
	}

	r = newReader(buffer.New(unescapeArma3(blob), buffer.LittleEndian))

	res.AddRule("rules_protocol_version", strconv.Itoa(int(r.u8())))
	res.AddRule("overflow", strconv.Itoa(int(r.u8())))

	dlcCount := bits.OnesCount8(r.u8()) + bits.OnesCount8(r.u8())
	dlcs := make([]string, 0, dlcCount)
	for range dlcCount {
		hash := r.u32()
		if r.err != nil {
			break
		}
		dlcs = append(dlcs, arma3DLCs[fmt.Sprintf("%x", hash)])
	}
	res.AddRule("dlcs", joinUnique(dlcs))

	difficulty := r.u8()
	res.AddRule("3rd_person", strconv.Itoa(int(difficulty>>7)))
	res.AddRule("advanced_flight_mode", strconv.Itoa(int((difficulty>>6)&1)))
	res.AddRule("difficulty_ai", strconv.Itoa(int((difficulty>>3)&3)))
	res.AddRule("difficulty_level", strconv.Itoa(int(difficulty&3)))
	res.AddRule("crosshair", strconv.Itoa(int(r.u8())))

	modCount := r.u8()
	res.AddRule("mod_count", strconv.Itoa(int(modCount)))
	res.AddRule("mods", joinUnique(readPascalList(r, int(modCount))))

	sigCount := r.u8()
	res.AddRule("signature_count", strconv.Itoa(int(sigCount)))
	res.AddRule("signatures", joinUnique(readPascalList(r, int(sigCount))))

	return r.check("arma3 rules")
}

func readPascalList(r *reader, n int) []string {
	out := make([]string, 0, n)
	for range n {
		s := r.pascal(0, true)
		if r.err != nil {
			break
		}
		out = append(out, s)
	}

	return out
}

// joinUnique joins values with commas, keeping the first occurrence of each.
func joinUnique(values []string) string {
	seen := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(seen, v) {
			seen = append(seen, v)
		}
	}

	return strings.Join(seen, ",")
}
