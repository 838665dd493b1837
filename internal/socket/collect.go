package socket

import (
	"context"
	"time"
)

// CollectOptions bound the read loop of one query stage.
type CollectOptions struct {
	// StreamTimeout is the poll slice; the loop ends after the first slice without data.
	StreamTimeout time.Duration
	// Blocking makes the first read wait for the whole remaining deadline.
	Blocking bool
}

// Collect reads frames in arrival order until a slice passes without data,
// the connection closes or ctx is done. It never returns an error: a stage
// that times out simply yields fewer frames.
func Collect(ctx context.Context, conn Conn, opts CollectOptions) [][]byte {
	var frames [][]byte

	slice := opts.StreamTimeout
	if slice <= 0 {
		slice = 200 * time.Millisecond
	}

	for first := true; ; first = false {
		if ctx.Err() != nil {
			return frames
		}

		wait := slice
		deadline, hasDeadline := ctx.Deadline()
		if hasDeadline {
			left := time.Until(deadline)
			if left <= 0 {
				return frames
			}
			if first && opts.Blocking {
				wait = left
			}
			wait = min(wait, left)
		}

		frame, err := conn.ReadFrame(wait)
		if err != nil {
			return frames
		}

		frames = append(frames, frame)
	}
}
