package protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"

	"github.com/woozymasta/gsquery/internal/buffer"
	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

const (
	raknetUnconnectedPing byte = 0x01
	raknetUnconnectedPong byte = 0x1C
)

// raknetMagic is the offline message id carried by unconnected packets.
var raknetMagic = []byte{
	0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE,
	0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78,
}

var raknetClientGUID = []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// Fields of the semicolon separated server id string, in wire order.
var raknetFields = []string{
	"edition",
	"motd_line_1",
	"protocol_version",
	"version",
	"num_players",
	"max_players",
	"server_uid",
	"motd_line_2",
	"gamemode",
	"gamemode_numeric",
	"port_ipv4",
	"port_ipv6",
}

type raknetDriver struct {
	base
	now func() time.Time
}

func newRakNetDriver(g *Game) *raknetDriver {
	return &raknetDriver{base: base{game: g}, now: time.Now}
}

func (d *raknetDriver) Transport() socket.Transport { return socket.UDP }
func (d *raknetDriver) Blocking() bool              { return false }

func (d *raknetDriver) ChallengeRequest() []byte { return nil }

func (d *raknetDriver) ParseChallenge([][]byte) ([]byte, error) { return nil, nil }

func (d *raknetDriver) Kinds() []PacketKind {
	return []PacketKind{KindStatus}
}

// Request renders an unconnected ping: id, client time, magic and client GUID.
func (d *raknetDriver) Request(kind PacketKind, _ Target, _ []byte) []byte {
	if kind != KindStatus {
		return nil
	}

	ping := binary.BigEndian.AppendUint64([]byte{raknetUnconnectedPing}, uint64(d.now().UnixMilli()))

	return concat(ping, raknetMagic, raknetClientGUID)
}

func (d *raknetDriver) Decode(res *result.Result, _ Target, resp Response) error {
	if len(resp.Frames) == 0 {
		return nil
	}

	frame := bytes.Join(resp.Frames, nil)
	r := newReader(buffer.New(frame, buffer.BigEndian))

	if id := r.u8(); r.err != nil || id != raknetUnconnectedPong {
		return &FrameError{What: "raknet header", Expected: []byte{raknetUnconnectedPong}, Actual: frame[:min(1, len(frame))]}
	}

	r.skip(8) // ping time
	res.AddRule("server_guid", int64(r.u64()))

	if magic := r.bytes(len(raknetMagic)); !bytes.Equal(magic, raknetMagic) {
		return &FrameError{What: "raknet magic", Expected: raknetMagic, Actual: magic}
	}

	r.skip(2) // id string length
	if err := r.check("raknet pong"); err != nil {
		return err
	}

	values := strings.Split(string(r.b.Remaining()), ";")
	info := make(map[string]string, len(raknetFields))
	for i, name := range raknetFields {
		if i < len(values) && values[i] != "" {
			info[name] = values[i]
			res.AddRule(name, values[i])
		}
	}

	res.Set(result.Active, true).
		Set(result.ServerType, "d").
		Set(result.OnlinePlayers, toInt(info["num_players"])).
		Set(result.Slots, toInt(info["max_players"]))

	if v, ok := info["motd_line_1"]; ok {
		res.Set(result.Hostname, v)
	}
	if v, ok := info["version"]; ok {
		res.Set(result.Version, v)
	}

	d.game.finish(res)

	return nil
}
