// Package query drives protocol drivers against real servers: it dials, runs the
// challenge handshake, collects frames per request kind and decodes them into a result.
package query

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/woozymasta/gsquery/internal/protocol"
	"github.com/woozymasta/gsquery/internal/result"
)

// Port bounds accepted for game ports.
const (
	MinPort = 1000
	MaxPort = 65535
)

var (
	// ErrInvalidPort is returned for ports outside MinPort..MaxPort.
	ErrInvalidPort = errors.New("invalid port")

	// ErrQueryPortRequired is returned when the driver cannot derive the query port.
	ErrQueryPortRequired = errors.New("query port required")

	// ErrUnknownDriver is returned for driver names missing from the registry.
	ErrUnknownDriver = protocol.ErrUnknownDriver

	// ErrNoResponse marks a server that sent nothing before the deadline.
	ErrNoResponse = errors.New("no response")

	// ErrInvalidSpec is returned for malformed driver:host:port[:query_port] strings.
	ErrInvalidSpec = errors.New("invalid server spec")
)

// Resolver turns a host name into an IPv4 address.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// Spec is an unresolved server entry as given on the command line or in a servers file.
type Spec struct {
	Driver    string `yaml:"driver"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	QueryPort int    `yaml:"query_port,omitempty"`
}

// String formats the spec the way ParseSpec reads it.
func (s Spec) String() string {
	out := s.Driver + ":" + s.Host + ":" + strconv.Itoa(s.Port)
	if s.QueryPort > 0 {
		out += ":" + strconv.Itoa(s.QueryPort)
	}

	return out
}

// ParseSpec reads driver:host:port[:query_port].
func ParseSpec(s string) (Spec, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 4 || parts[0] == "" || parts[1] == "" {
		return Spec{}, errors.Wrapf(ErrInvalidSpec, "%q: want driver:host:port[:query_port]", s)
	}

	port, err := strconv.Atoi(parts[2])
	if err != nil {
		return Spec{}, errors.Wrapf(ErrInvalidSpec, "%q: port %q", s, parts[2])
	}

	spec := Spec{Driver: parts[0], Host: parts[1], Port: port}
	if len(parts) == 4 {
		if spec.QueryPort, err = strconv.Atoi(parts[3]); err != nil {
			return Spec{}, errors.Wrapf(ErrInvalidSpec, "%q: query port %q", s, parts[3])
		}
	}

	return spec, nil
}

// Server is a validated, resolved query target. It is immutable once built.
type Server struct {
	driver    protocol.Driver
	host      string
	ip        string
	port      int
	queryPort int
}

// NewServer validates the ports and derives the query port when it is zero.
func NewServer(d protocol.Driver, host, ip string, port, queryPort int) (Server, error) {
	if port < MinPort || port > MaxPort {
		return Server{}, errors.Wrapf(ErrInvalidPort, "port %d not in %d..%d", port, MinPort, MaxPort)
	}

	switch {
	case queryPort != 0:
		if queryPort < MinPort || queryPort > MaxPort {
			return Server{}, errors.Wrapf(ErrInvalidPort, "query port %d not in %d..%d", queryPort, MinPort, MaxPort)
		}
	case d.QueryPortMandatory():
		return Server{}, errors.Wrapf(ErrQueryPortRequired, "driver %s", d.Name())
	default:
		queryPort = d.QueryPort(port)
		if queryPort < 1 || queryPort > MaxPort {
			return Server{}, errors.Wrapf(ErrInvalidPort, "derived query port %d", queryPort)
		}
	}

	return Server{driver: d, host: host, ip: ip, port: port, queryPort: queryPort}, nil
}

// Prepare looks up the driver, resolves the host and builds the server.
func Prepare(ctx context.Context, reg *protocol.Registry, r Resolver, spec Spec) (Server, error) {
	d, err := reg.Lookup(spec.Driver)
	if err != nil {
		return Server{}, err
	}

	ip, err := r.Resolve(ctx, spec.Host)
	if err != nil {
		return Server{}, err
	}

	return NewServer(d, spec.Host, ip, spec.Port, spec.QueryPort)
}

// Driver returns the protocol driver of the server.
func (s Server) Driver() protocol.Driver { return s.driver }

// Host returns the host as given, before resolution.
func (s Server) Host() string { return s.host }

// IP returns the resolved IPv4 address.
func (s Server) IP() string { return s.ip }

// Port returns the game port.
func (s Server) Port() int { return s.port }

// QueryPort returns the port that is queried, given or derived from the game port.
func (s Server) QueryPort() int { return s.queryPort }

// Address is ip:port of the game port. Results are keyed by it.
func (s Server) Address() string {
	return net.JoinHostPort(s.ip, strconv.Itoa(s.port))
}

// QueryAddress is ip:query_port, the endpoint that is dialed.
func (s Server) QueryAddress() string {
	return net.JoinHostPort(s.ip, strconv.Itoa(s.queryPort))
}

// Target is the endpoint handed to the driver.
func (s Server) Target() protocol.Target {
	return protocol.Target{IP: s.ip, Port: s.port, QueryPort: s.queryPort}
}

func (s Server) defaultResult() *result.Result {
	return result.New().
		Set(result.Application, s.driver.Name()).
		Set(result.IPAddress, s.ip).
		Set(result.Port, s.port).
		Set(result.QueryPort, s.queryPort)
}
