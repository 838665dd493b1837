package socket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedConn struct {
	frames [][]byte
	tail   error
	waits  []time.Duration
}

func (c *scriptedConn) Write(p []byte) (int, error) { return len(p), nil }

func (c *scriptedConn) ReadFrame(timeout time.Duration) ([]byte, error) {
	c.waits = append(c.waits, timeout)
	if len(c.frames) == 0 {
		return nil, c.tail
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f, nil
}

func (c *scriptedConn) Close() error { return nil }

func TestCollectStopsOnEmptySlice(t *testing.T) {
	conn := &scriptedConn{frames: [][]byte{[]byte("a"), []byte("b")}, tail: ErrNoData}

	frames := Collect(context.Background(), conn, CollectOptions{StreamTimeout: 10 * time.Millisecond})
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, frames)
	assert.Len(t, conn.waits, 3)
}

func TestCollectStopsOnClose(t *testing.T) {
	conn := &scriptedConn{frames: [][]byte{[]byte("x")}, tail: ErrClosed}

	frames := Collect(context.Background(), conn, CollectOptions{})
	assert.Len(t, frames, 1)
}

func TestCollectHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	conn := &scriptedConn{frames: [][]byte{[]byte("x")}}
	assert.Empty(t, Collect(ctx, conn, CollectOptions{}))
	assert.Empty(t, conn.waits)
}

func TestCollectBlockingFirstRead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := &scriptedConn{tail: ErrNoData}
	Collect(ctx, conn, CollectOptions{StreamTimeout: 10 * time.Millisecond, Blocking: true})

	require.Len(t, conn.waits, 1)
	assert.Greater(t, conn.waits[0], time.Second)
}

func TestNetDialerUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = pc.Close() }()

	go func() {
		buf := make([]byte, 1500)
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = pc.WriteTo(append([]byte("echo:"), buf[:n]...), addr)
		_, _ = pc.WriteTo([]byte("second"), addr)
	}()

	d := &NetDialer{Timeout: time.Second}
	conn, err := d.Dial(context.Background(), UDP, pc.LocalAddr().String())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames := Collect(ctx, conn, CollectOptions{StreamTimeout: 500 * time.Millisecond})
	require.Len(t, frames, 2)
	assert.Equal(t, "echo:ping", string(frames[0]))
	assert.Equal(t, "second", string(frames[1]))
}

func TestNetDialerErrors(t *testing.T) {
	d := &NetDialer{Timeout: 200 * time.Millisecond}

	_, err := d.Dial(context.Background(), Transport("carrier-pigeon"), "127.0.0.1:1")
	require.ErrorIs(t, err, ErrConnection)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "127.0.0.1:1", connErr.Address)

	_, err = d.Dial(context.Background(), TCP, "127.0.0.1:1")
	assert.ErrorIs(t, err, ErrConnection)
}
