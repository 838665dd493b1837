package protocol

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/woozymasta/gsquery/internal/buffer"
	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

var sampHeader = []byte("SAMP")

var sampOpcodes = map[PacketKind]byte{
	KindStatus:  'i',
	KindPlayers: 'd',
	KindRules:   'r',
}

type sampDecodeFunc func(b *buffer.Buffer, res *result.Result) error

var sampDispatch = map[byte]sampDecodeFunc{
	'i': decodeSAMPStatus,
	'd': decodeSAMPPlayers,
	'r': decodeSAMPRules,
}

type sampDriver struct {
	base
}

func newSAMPDriver(g *Game) *sampDriver {
	return &sampDriver{base: base{game: g}}
}

func (d *sampDriver) Transport() socket.Transport { return socket.UDP }
func (d *sampDriver) Blocking() bool              { return false }

// The SA-MP challenge is derived from the target, so there is no round trip.
func (d *sampDriver) ChallengeRequest() []byte { return nil }

func (d *sampDriver) ParseChallenge([][]byte) ([]byte, error) { return nil, nil }

func (d *sampDriver) Kinds() []PacketKind {
	kinds := []PacketKind{KindStatus}
	if !d.game.SkipPlayers {
		kinds = append(kinds, KindPlayers)
	}
	if !d.game.SkipRules {
		kinds = append(kinds, KindRules)
	}

	return kinds
}

func (d *sampDriver) Request(kind PacketKind, t Target, _ []byte) []byte {
	op, ok := sampOpcodes[kind]
	if !ok {
		return nil
	}

	return concat(sampHeader, sampChallenge(t), []byte{op})
}

// sampChallenge is the IPv4 address followed by the little endian game port.
func sampChallenge(t Target) []byte {
	out := make([]byte, 0, 6)
	if ip := net.ParseIP(t.IP).To4(); ip != nil {
		out = append(out, ip...)
	}

	return binary.LittleEndian.AppendUint16(out, uint16(t.Port))
}

func (d *sampDriver) Decode(res *result.Result, t Target, resp Response) error {
	if len(resp.Frames) == 0 {
		return nil
	}

	challenge := sampChallenge(t)
	for _, f := range resp.Frames {
		b := buffer.New(f, buffer.LittleEndian)

		if header, _ := b.Read(len(sampHeader)); !bytes.Equal(header, sampHeader) {
			return &FrameError{What: "samp header", Expected: sampHeader, Actual: header}
		}
		if echo, _ := b.Read(len(challenge)); !bytes.Equal(echo, challenge) {
			return &FrameError{What: "samp challenge", Expected: challenge, Actual: echo}
		}

		op, err := b.ReadUint8()
		if err != nil {
			return &FrameError{What: "samp opcode", Actual: f}
		}

		decode, ok := sampDispatch[op]
		if !ok {
			return &MarkerError{Marker: op, Buffer: f}
		}
		if err := decode(b, res); err != nil {
			return err
		}
	}

	d.game.finish(res)

	return nil
}

func sampString(r *reader) string {
	n := r.u32()
	return latin1(string(r.bytes(int(n))))
}

func decodeSAMPStatus(b *buffer.Buffer, res *result.Result) error {
	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	password := r.u8() != 0
	online := r.u16()
	slots := r.u16()
	hostname := sampString(r)
	gametype := sampString(r)
	language := sampString(r)
	if err := r.check("samp status"); err != nil {
		return err
	}

	res.Set(result.Active, true).
		Set(result.Password, password).
		Set(result.OnlinePlayers, int(online)).
		Set(result.Slots, int(slots)).
		Set(result.Hostname, hostname).
		Set(result.ServerType, "d")
	res.AddRule("gametype", gametype).AddRule("language", language)

	return nil
}

func decodeSAMPPlayers(b *buffer.Buffer, res *result.Result) error {
	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	count := r.u16()
	if err := r.check("samp players count"); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	for b.Len() > 0 {
		r.skip(1) // id
		name := latin1(r.pascal(0, false))
		score := r.i32()
		r.i32() // ping
		if err := r.check("samp player"); err != nil {
			return err
		}

		res.AddPlayer(name, int64(score), 0)
	}

	return nil
}

func decodeSAMPRules(b *buffer.Buffer, res *result.Result) error {
	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	count := r.u16()
	if err := r.check("samp rules count"); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	for b.Len() > 0 {
		name := latin1(r.pascal(0, false))
		value := latin1(r.pascal(0, false))
		if err := r.check("samp rule"); err != nil {
			return err
		}

		res.AddRule(name, value)
	}

	if v, ok := res.Rule("mapname"); ok {
		res.Set(result.Map, v)
	}
	if v, ok := res.Rule("version"); ok {
		res.Set(result.Version, v)
	}

	return nil
}
