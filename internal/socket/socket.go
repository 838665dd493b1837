// Package socket opens query connections and collects raw response frames.
package socket

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/go-faster/errors"
)

// Transport is the scheme used to reach a server.
type Transport string

// Supported transports.
const (
	UDP Transport = "udp"
	TCP Transport = "tcp"
	SSL Transport = "ssl"
	TLS Transport = "tls"
)

// DefaultBufferSize fits the largest UDP datagram.
const DefaultBufferSize = 65535

var (
	// ErrConnection is matched by every dial failure.
	ErrConnection = errors.New("connection failed")

	// ErrNoData reports a read slice that elapsed without data.
	ErrNoData = errors.New("no data")

	// ErrClosed reports a connection closed by the peer or locally.
	ErrClosed = errors.New("connection closed")
)

// ConnectionError describes a socket that could not be created or connected.
type ConnectionError struct {
	Err       error
	Transport Transport
	Address   string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s://%s: %v", e.Transport, e.Address, e.Err)
}

// Unwrap returns the dial error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnection as the sentinel of this error.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// Conn is one open query connection.
type Conn interface {
	// Write sends one request frame.
	Write(p []byte) (int, error)
	// ReadFrame waits at most timeout for one frame.
	// It returns ErrNoData when nothing arrived and ErrClosed when the connection is gone.
	ReadFrame(timeout time.Duration) ([]byte, error)
	Close() error
}

// Dialer opens connections. Tests substitute in-memory implementations.
type Dialer interface {
	Dial(ctx context.Context, transport Transport, address string) (Conn, error)
}

// NetDialer dials real sockets.
type NetDialer struct {
	// betteralign:ignore

	TLSConfig  *tls.Config
	Timeout    time.Duration
	BufferSize int
}

// Dial implements Dialer.
func (d *NetDialer) Dial(ctx context.Context, transport Transport, address string) (Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}

	var (
		conn net.Conn
		err  error
	)

	switch transport {
	case UDP, TCP:
		conn, err = dialer.DialContext(ctx, string(transport), address)
	case SSL, TLS:
		cfg := d.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		td := &tls.Dialer{NetDialer: dialer, Config: cfg}
		conn, err = td.DialContext(ctx, "tcp", address)
	default:
		err = errors.Errorf("unsupported transport %q", transport)
	}

	if err != nil {
		return nil, &ConnectionError{Transport: transport, Address: address, Err: err}
	}

	size := d.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &netConn{conn: conn, buf: make([]byte, size)}, nil
}

type netConn struct {
	conn net.Conn
	buf  []byte
}

func (c *netConn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *netConn) ReadFrame(timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errors.Wrap(ErrClosed, err.Error())
	}

	n, err := c.conn.Read(c.buf)
	if n > 0 {
		frame := make([]byte, n)
		copy(frame, c.buf[:n])
		return frame, nil
	}

	switch {
	case err == nil:
		return nil, ErrNoData
	case errors.Is(err, os.ErrDeadlineExceeded):
		return nil, ErrNoData
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return nil, ErrClosed
	default:
		// ICMP port unreachable surfaces as a read error on connected UDP sockets.
		return nil, errors.Wrap(ErrClosed, err.Error())
	}
}

func (c *netConn) Close() error {
	return c.conn.Close()
}
