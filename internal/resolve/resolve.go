// Package resolve maps host names, including internationalized ones, to IPv4 addresses.
package resolve

import (
	"context"
	"net"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/net/idna"
)

// ErrResolve is matched by every lookup failure.
var ErrResolve = errors.New("resolve failed")

// Lookuper is the subset of net.Resolver used here.
type Lookuper interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Resolver resolves hosts to their first IPv4 address.
type Resolver struct {
	lookup Lookuper
}

// New returns a resolver backed by lookup, or by net.DefaultResolver when nil.
func New(lookup Lookuper) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}

	return &Resolver{lookup: lookup}
}

// Resolve returns IP literals unchanged. Other hosts are converted to their ASCII
// form and looked up; the first IPv4 address wins.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	host = strings.TrimSpace(host)
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", errors.Wrapf(ErrResolve, "%s: %v", host, err)
	}

	addrs, err := r.lookup.LookupIPAddr(ctx, ascii)
	if err != nil {
		return "", errors.Wrapf(ErrResolve, "%s: %v", host, err)
	}

	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}

	return "", errors.Wrapf(ErrResolve, "%s: no IPv4 address", host)
}
