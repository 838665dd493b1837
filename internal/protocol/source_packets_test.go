package protocol

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/gsquery/internal/fake"
)

// bzip2 of FF FF FF FF 45 0200 "sv_version\0" "1.2.3\0" "mp_timelimit\0" "30\0" (40 bytes).
const compressedRules = "425a68393141592653597751aa1f0000145f80d00000017800020000008227dd000000a0003140d34323262114f51fa534f213347a97d176a43c33c22a4995b4913a4fb7d80581a2efa1c1772453850907751aa1f0"

func TestAssembleSourceSingle(t *testing.T) {
	frames := [][]byte{
		fake.SourceSingle([]byte("\x49info")),
		fake.SourceSingle([]byte("\x44players")),
	}

	payloads, err := assembleSource(frames, EngineSource)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("\x49info"), []byte("\x44players")}, payloads)
}

func TestAssembleSourceSplitOutOfOrder(t *testing.T) {
	tests := []struct {
		name   string
		engine Engine
		build  func(id int32, total, number int, body []byte) []byte
	}{
		{name: "source", engine: EngineSource, build: fake.SourceSplit},
		{name: "goldsource", engine: EngineGoldSource, build: fake.GoldSourceSplit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := [][]byte{
				tt.build(7, 3, 2, []byte("c")),
				tt.build(7, 3, 0, []byte("\xFF\xFF\xFF\xFFa")),
				tt.build(7, 3, 1, []byte("b")),
			}

			payloads, err := assembleSource(frames, tt.engine)
			require.NoError(t, err)
			require.Len(t, payloads, 1)
			assert.Equal(t, "abc", string(payloads[0]))
		})
	}
}

func TestAssembleSourceKeepsArrivalOrder(t *testing.T) {
	frames := [][]byte{
		fake.SourceSplit(1, 2, 1, []byte("second")),
		fake.SourceSingle([]byte("\x49single")),
		fake.SourceSplit(1, 2, 0, []byte("\xFF\xFF\xFF\xFF\x45first-")),
	}

	payloads, err := assembleSource(frames, EngineSource)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, "\x45first-second", string(payloads[0]))
	assert.Equal(t, "\x49single", string(payloads[1]))
}

func TestAssembleSourceCompressed(t *testing.T) {
	body, err := hex.DecodeString(compressedRules)
	require.NoError(t, err)

	const id = 0x80000011

	t.Run("valid", func(t *testing.T) {
		frames := [][]byte{fake.SourceCompressedSplit(id, 1, 0, 40, 0xDEADBEEF, body)}

		payloads, err := assembleSource(frames, EngineSource)
		require.NoError(t, err)
		require.Len(t, payloads, 1)
		assert.Equal(t, byte(0x45), payloads[0][0])
		assert.Contains(t, string(payloads[0]), "sv_version\x001.2.3")
	})

	t.Run("size mismatch", func(t *testing.T) {
		frames := [][]byte{fake.SourceCompressedSplit(id, 1, 0, 41, 0, body)}

		_, err := assembleSource(frames, EngineSource)
		require.ErrorIs(t, err, ErrDecompressionIntegrity)

		var de *DecompressionError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 41, de.Expected)
		assert.Equal(t, 40, de.Actual)
	})

	t.Run("corrupt stream", func(t *testing.T) {
		frames := [][]byte{fake.SourceCompressedSplit(id, 1, 0, 40, 0, []byte("BZh9 garbage"))}

		_, err := assembleSource(frames, EngineSource)
		assert.ErrorIs(t, err, ErrDecompressionIntegrity)
	})
}

func TestAssembleSourceInvalidHeader(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "unknown header", frame: []byte{0x01, 0x02, 0x03, 0x04, 0x49}},
		{name: "short frame", frame: []byte{0xFF, 0xFF}},
		{name: "split without id", frame: []byte{0xFE, 0xFF, 0xFF, 0xFF, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assembleSource([][]byte{tt.frame}, EngineSource)
			assert.ErrorIs(t, err, ErrFrameVerification)
		})
	}
}

func TestDetectEngine(t *testing.T) {
	gold := [][]byte{fake.SourceSingle([]byte{0x6D, 0x00})}
	src := [][]byte{fake.SourceSingle([]byte{0x49, 0x11})}

	assert.Equal(t, EngineGoldSource, detectEngine(gold, EngineSource))
	assert.Equal(t, EngineGoldSource, detectEngine(src, EngineGoldSource))
	assert.Equal(t, EngineSource, detectEngine(src, ""))
}
