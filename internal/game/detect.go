// Package game probes an unknown game server to find out which query protocol it speaks.
package game

import (
	"cmp"
	"context"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
	"github.com/sandertv/go-raknet"
	"github.com/woozymasta/a2s/pkg/a2s"

	"github.com/woozymasta/gsquery/internal/protocol"
)

// ErrNotDetected is returned when no probe got an answer.
var ErrNotDetected = errors.New("no query protocol answered")

// Options tune the A2S probe.
type Options struct {
	Timeout    time.Duration
	BufferSize uint16
}

// Detection is a protocol family that answered a probe.
type Detection struct {
	Family      protocol.Family `json:"family"`
	Description string          `json:"description"`
	Hostname    string          `json:"hostname"`
	Driver      string          `json:"driver"`
	Players     int             `json:"players"`
	MaxPlayers  int             `json:"max_players"`

	// Exact is set when the description matched a known game.
	Exact bool `json:"exact"`
}

type probe func(ctx context.Context, ip string, port int) (Detection, error)

// Detector runs all probes against one address.
type Detector struct {
	reg    *protocol.Registry
	probes map[protocol.Family]probe
}

// NewDetector returns a detector probing A2S and RakNet.
func NewDetector(reg *protocol.Registry, opts Options) *Detector {
	return &Detector{
		reg: reg,
		probes: map[protocol.Family]probe{
			protocol.FamilySource: a2sProbe(opts),
			protocol.FamilyRakNet: raknetProbe,
		},
	}
}

// Detect probes ip:port concurrently and returns the answers ordered by family.
func (d *Detector) Detect(ctx context.Context, ip string, port int) ([]Detection, error) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		found []Detection
	)

	for family, p := range d.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			det, err := p(ctx, ip, port)
			if err != nil {
				log.Debug().Err(err).Str("family", string(family)).Str("ip", ip).Int("port", port).Msg("Probe failed")
				return
			}

			det.Family = family
			det.Driver, det.Exact = d.reg.SuggestDriver(family, det.Description)

			mu.Lock()
			found = append(found, det)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(found) == 0 {
		return nil, errors.Wrapf(ErrNotDetected, "%s", net.JoinHostPort(ip, strconv.Itoa(port)))
	}

	slices.SortFunc(found, func(a, b Detection) int {
		return cmp.Compare(a.Family, b.Family)
	})

	return found, nil
}

// a2sProbe connects to a game server via UDP and requests A2S_INFO.
func a2sProbe(opts Options) probe {
	return func(ctx context.Context, ip string, port int) (Detection, error) {
		client, err := a2s.New(ip, port)
		if err != nil {
			return Detection{}, errors.Wrap(err, "a2s client")
		}
		defer func() { _ = client.Close() }()

		client.BufferSize = opts.BufferSize
		client.Timeout = opts.Timeout
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < client.Timeout || client.Timeout == 0 {
				client.Timeout = left
			}
		}

		info, err := client.GetInfo()
		if err != nil {
			return Detection{}, errors.Wrap(err, "a2s info")
		}

		return Detection{
			Description: info.Game,
			Hostname:    info.Name,
			Players:     int(info.Players),
			MaxPlayers:  int(info.MaxPlayers),
		}, nil
	}
}

// raknetProbe sends an unconnected ping and reads the server id string of the pong.
func raknetProbe(ctx context.Context, ip string, port int) (Detection, error) {
	data, err := raknet.PingContext(ctx, net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return Detection{}, errors.Wrap(err, "raknet ping")
	}

	return parsePong(data), nil
}

// parsePong reads edition;motd;protocol;version;players;max_players;...
func parsePong(data []byte) Detection {
	parts := strings.Split(string(data), ";")
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	det := Detection{
		Description: strings.TrimSpace(at(0) + " " + at(3)),
		Hostname:    at(1),
	}
	det.Players, _ = strconv.Atoi(at(4))
	det.MaxPlayers, _ = strconv.Atoi(at(5))

	return det
}
