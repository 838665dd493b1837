package fake

import (
	"bytes"
	"net"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
)

// Handler answers one request datagram with any number of reply datagrams.
type Handler func(req []byte) [][]byte

// UDPServer is a loopback game server driven by a Handler.
type UDPServer struct {
	conn     *net.UDPConn
	handler  Handler
	requests [][]byte
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// ListenUDP starts a server on an ephemeral loopback port.
func ListenUDP(handler Handler) (*UDPServer, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}

	s := &UDPServer{conn: conn, handler: handler}
	s.wg.Add(1)
	go s.serve()

	return s, nil
}

func (s *UDPServer) serve() {
	defer s.wg.Done()

	buf := make([]byte, 65535)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		req := bytes.Clone(buf[:n])
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		for _, reply := range s.handler(req) {
			_, _ = s.conn.WriteToUDP(reply, addr)
		}
	}
}

// Host returns the listening IP address.
func (s *UDPServer) Host() string {
	return s.conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// Port returns the listening port.
func (s *UDPServer) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Addr returns host:port.
func (s *UDPServer) Addr() string {
	return net.JoinHostPort(s.Host(), strconv.Itoa(s.Port()))
}

// Requests returns the datagrams received so far.
func (s *UDPServer) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.requests))
	copy(out, s.requests)

	return out
}

// Close stops the server and waits for the serve loop to exit.
func (s *UDPServer) Close() error {
	err := s.conn.Close()
	s.wg.Wait()

	return err
}
