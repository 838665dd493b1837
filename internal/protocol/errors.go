package protocol

import (
	"encoding/hex"
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrFrameVerification is matched by header, magic and challenge mismatches.
	ErrFrameVerification = errors.New("frame verification failed")

	// ErrDecompressionIntegrity is matched when a decompressed split packet has the wrong size or checksum.
	ErrDecompressionIntegrity = errors.New("decompression integrity check failed")

	// ErrUnknownMarker is matched when a response type byte has no decoder.
	ErrUnknownMarker = errors.New("unknown response marker")

	// ErrUnknownDriver is returned by registry lookups of unregistered names.
	ErrUnknownDriver = errors.New("unknown driver")

	// ErrInvalidGame is returned when a game record cannot be turned into a driver.
	ErrInvalidGame = errors.New("invalid game definition")
)

// FrameError describes a frame that failed verification.
type FrameError struct {
	What     string
	Expected []byte
	Actual   []byte
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s verification failed: expected %x, got %x", e.What, e.Expected, e.Actual)
}

// Is reports ErrFrameVerification as the sentinel of this error.
func (e *FrameError) Is(target error) bool {
	return target == ErrFrameVerification
}

// DecompressionError describes a compressed split packet that did not match its header.
type DecompressionError struct {
	Err      error
	Expected int
	Actual   int
}

func (e *DecompressionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decompress split packet: %v", e.Err)
	}

	return fmt.Sprintf("decompressed split packet length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Unwrap returns the underlying decompression error, if any.
func (e *DecompressionError) Unwrap() error {
	return e.Err
}

// Is reports ErrDecompressionIntegrity as the sentinel of this error.
func (e *DecompressionError) Is(target error) bool {
	return target == ErrDecompressionIntegrity
}

// MarkerError carries a payload whose type byte has no decoder.
type MarkerError struct {
	Buffer []byte
	Marker byte
}

func (e *MarkerError) Error() string {
	dump := e.Buffer
	if len(dump) > 32 {
		dump = dump[:32]
	}

	return fmt.Sprintf("unknown response marker 0x%02x in %s", e.Marker, hex.EncodeToString(dump))
}

// Is reports ErrUnknownMarker as the sentinel of this error.
func (e *MarkerError) Is(target error) bool {
	return target == ErrUnknownMarker
}
