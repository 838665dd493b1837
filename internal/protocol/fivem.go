package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/tidwall/gjson"

	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

var fivemInfoRequest = []byte("\xFF\xFF\xFF\xFFgetinfo xxx")

// Length of the "\xFF\xFF\xFF\xFFinfoResponse\n" reply header.
const fivemInfoHeaderSize = 17

// Upper bound for players.json bodies.
const fivemMaxPlayersBody = 4 << 20

type fivemDriver struct {
	base
}

func newFiveMDriver(g *Game) *fivemDriver {
	return &fivemDriver{base: base{game: g}}
}

func (d *fivemDriver) Transport() socket.Transport { return socket.UDP }
func (d *fivemDriver) Blocking() bool              { return false }

func (d *fivemDriver) ChallengeRequest() []byte { return nil }

func (d *fivemDriver) ParseChallenge([][]byte) ([]byte, error) { return nil, nil }

func (d *fivemDriver) Kinds() []PacketKind {
	return []PacketKind{KindStatus}
}

func (d *fivemDriver) Request(kind PacketKind, _ Target, _ []byte) []byte {
	if kind != KindStatus {
		return nil
	}

	return fivemInfoRequest
}

// Supplement fetches the player list the server publishes over HTTP on the game port.
func (d *fivemDriver) Supplement(ctx context.Context, client *http.Client, t Target) ([]byte, error) {
	url := fmt.Sprintf("http://%s/players.json", net.JoinHostPort(t.IP, strconv.Itoa(t.Port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build players request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch players")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch players: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fivemMaxPlayersBody))
	if err != nil {
		return nil, errors.Wrap(err, "read players")
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("players.json is not valid JSON")
	}

	return body, nil
}

func (d *fivemDriver) Decode(res *result.Result, _ Target, resp Response) error {
	payload := bytes.Join(resp.Frames, nil)
	if len(payload) <= fivemInfoHeaderSize {
		return nil
	}

	body := strings.TrimPrefix(string(payload[fivemInfoHeaderSize:]), `\`)
	parts := strings.Split(body, `\`)

	info := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		info[parts[i]] = parts[i+1]
	}
	delete(info, "challenge")

	res.Set(result.Active, true).
		Set(result.ServerType, "d").
		Set(result.OnlinePlayers, 0).
		Set(result.Slots, toInt(info["sv_maxclients"]))

	if v, ok := info["hostname"]; ok {
		res.Set(result.Hostname, v)
	}
	if v, ok := info["mapname"]; ok {
		res.Set(result.Map, v)
	}
	if v, ok := info["iv"]; ok {
		res.Set(result.Version, v)
	}

	for k, v := range info {
		res.AddRule(k, v)
	}

	if _, ok := info["hostname"]; ok && len(resp.Extra) > 0 {
		decodeFiveMPlayers(resp.Extra, res)
	}

	d.game.finish(res)

	return nil
}

func decodeFiveMPlayers(data []byte, res *result.Result) {
	players := gjson.ParseBytes(data)
	if !players.IsArray() {
		return
	}

	count := 0
	players.ForEach(func(_, p gjson.Result) bool {
		res.AddPlayer(p.Get("name").String(), 0, 0)
		count++
		return true
	})

	res.Set(result.OnlinePlayers, count)
}
