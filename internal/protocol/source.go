package protocol

import (
	"bytes"
	"strings"

	"github.com/woozymasta/gsquery/internal/buffer"
	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

// Response markers of the A2S protocol.
const (
	sourceMarkerChallenge byte = 0x41
	sourceMarkerInfo      byte = 0x49
	sourceMarkerGoldInfo  byte = 0x6D
	sourceMarkerPlayers   byte = 0x44
	sourceMarkerRules     byte = 0x45
)

const theShipAppID = 2400

var sourceRequests = map[PacketKind][]byte{
	KindInfo:    []byte("\xFF\xFF\xFF\xFFTSource Engine Query\x00"),
	KindPlayers: []byte("\xFF\xFF\xFF\xFF\x55"),
	KindRules:   []byte("\xFF\xFF\xFF\xFF\x56"),
}

type sourceDecodeFunc func(d *sourceDriver, b *buffer.Buffer, res *result.Result) error

var sourceDispatch = map[byte]sourceDecodeFunc{
	sourceMarkerInfo:      (*sourceDriver).decodeInfo,
	sourceMarkerGoldInfo:  (*sourceDriver).decodeGoldInfo,
	sourceMarkerPlayers:   (*sourceDriver).decodePlayers,
	sourceMarkerRules:     (*sourceDriver).decodeRules,
	sourceMarkerChallenge: func(*sourceDriver, *buffer.Buffer, *result.Result) error { return nil },
}

var sourcePlayerDecoders = map[string]func(b *buffer.Buffer, res *result.Result) error{
	"the_ship": decodeTheShipPlayers,
}

var sourceRulesDecoders = map[string]func(b *buffer.Buffer, res *result.Result) error{
	"arma3": decodeArma3Rules,
}

type sourceDriver struct {
	base
}

func newSourceDriver(g *Game) *sourceDriver {
	return &sourceDriver{base: base{game: g}}
}

func (d *sourceDriver) Transport() socket.Transport { return socket.UDP }
func (d *sourceDriver) Blocking() bool              { return false }

// ChallengeRequest sends a player request with an empty challenge; servers
// answer it with their challenge.
func (d *sourceDriver) ChallengeRequest() []byte {
	return concat(sourceRequests[KindPlayers], sourceEnvelope)
}

func (d *sourceDriver) ParseChallenge(frames [][]byte) ([]byte, error) {
	challenge, _ := findSourceChallenge(frames)
	return challenge, nil
}

func (d *sourceDriver) Rechallenge(frames [][]byte) ([]byte, [][]byte, bool) {
	var (
		challenge []byte
		data      [][]byte
	)

	for _, f := range frames {
		if isSourceChallenge(f) {
			challenge = bytes.Clone(f[5:9])
			continue
		}
		data = append(data, f)
	}

	return challenge, data, challenge != nil
}

func isSourceChallenge(f []byte) bool {
	return len(f) >= 9 && bytes.HasPrefix(f, sourceEnvelope) && f[4] == sourceMarkerChallenge
}

func findSourceChallenge(frames [][]byte) ([]byte, bool) {
	for _, f := range frames {
		if isSourceChallenge(f) {
			return bytes.Clone(f[5:9]), true
		}
	}

	return nil, false
}

func (d *sourceDriver) Kinds() []PacketKind {
	kinds := []PacketKind{KindInfo}
	if !d.game.SkipPlayers {
		kinds = append(kinds, KindPlayers)
	}
	if !d.game.SkipRules {
		kinds = append(kinds, KindRules)
	}

	return kinds
}

func (d *sourceDriver) Request(kind PacketKind, _ Target, challenge []byte) []byte {
	tpl, ok := sourceRequests[kind]
	if !ok {
		return nil
	}

	if challenge == nil && kind != KindInfo {
		challenge = sourceEnvelope
	}

	return concat(tpl, challenge)
}

func (d *sourceDriver) Decode(res *result.Result, _ Target, resp Response) error {
	if len(resp.Frames) == 0 {
		return nil
	}

	engine := detectEngine(resp.Frames, d.game.Engine)
	payloads, err := assembleSource(resp.Frames, engine)
	if err != nil {
		return err
	}

	for _, p := range payloads {
		if len(p) == 0 {
			continue
		}

		b := buffer.New(p, buffer.LittleEndian)
		marker, _ := b.ReadUint8()

		decode, ok := sourceDispatch[marker]
		if !ok {
			return &MarkerError{Marker: marker, Buffer: p}
		}
		if err := decode(d, b, res); err != nil {
			return err
		}
	}

	d.game.finish(res)

	return nil
}

func (d *sourceDriver) decodeInfo(b *buffer.Buffer, res *result.Result) error {
	r := newReader(b)
	r.skip(1) // protocol

	hostname := r.cstr()
	mapName := r.cstr()
	res.AddRule("game_dir", r.cstr())
	res.AddRule("game_descr", r.cstr())

	appID := r.u16()
	online := r.u8()
	slots := r.u8()
	bots := r.u8()
	serverType := strings.ToLower(string(r.bytes(1)))
	osType := strings.ToLower(string(r.bytes(1)))
	password := r.u8() != 0
	vac := r.u8() != 0

	if appID == theShipAppID {
		res.AddRule("game_mode", r.u8())
		res.AddRule("witness_count", r.u8())
		res.AddRule("witness_time", r.u8())
	}

	version := r.cstr()
	if err := r.check("source info"); err != nil {
		return err
	}

	res.AddRule("steam_appid", int(appID)).AddRule("vac_secured", vac)
	res.Set(result.Active, true).
		Set(result.Hostname, hostname).
		Set(result.Map, mapName).
		Set(result.OnlinePlayers, int(online)).
		Set(result.Slots, int(slots)).
		Set(result.Bots, int(bots)).
		Set(result.ServerType, serverType).
		Set(result.OS, osType).
		Set(result.Password, password).
		Set(result.Version, version)

	if b.Len() == 0 {
		return nil
	}

	edf := r.u8()
	if edf&0x80 != 0 {
		res.AddRule("port", int(r.u16()))
	}
	if edf&0x10 != 0 {
		res.AddRule("steam_id", r.u64())
	}
	if edf&0x40 != 0 {
		res.AddRule("sourcetv_port", int(r.u16()))
		res.AddRule("sourcetv_name", r.cstr())
	}
	if edf&0x20 != 0 {
		res.AddRule("keywords", r.cstr())
	}
	if edf&0x01 != 0 {
		res.AddRule("game_id", r.u64())
	}

	return r.check("source info extra data")
}

func (d *sourceDriver) decodeGoldInfo(b *buffer.Buffer, res *result.Result) error {
	r := newReader(b)
	r.cstr() // address

	hostname := r.cstr()
	mapName := r.cstr()
	res.AddRule("game_dir", r.cstr())
	res.AddRule("game_descr", r.cstr())

	online := r.u8()
	slots := r.u8()
	version := r.u8()
	serverType := strings.ToLower(string(r.bytes(1)))
	osType := strings.ToLower(string(r.bytes(1)))
	password := r.u8() != 0

	if r.u8() == 1 {
		res.AddRule("mode_url_info", r.cstr())
		res.AddRule("mode_url_download", r.cstr())
		r.skip(1)
		res.AddRule("mode_version", r.i32())
		res.AddRule("mode_size", r.i32())
		res.AddRule("mode_type", r.u8())
		res.AddRule("mode_dll", r.u8())
	}

	vac := r.u8() != 0
	bots := r.u8()
	if err := r.check("goldsource info"); err != nil {
		return err
	}

	res.AddRule("vac_secured", vac)
	res.Set(result.Active, true).
		Set(result.Hostname, hostname).
		Set(result.Map, mapName).
		Set(result.OnlinePlayers, int(online)).
		Set(result.Slots, int(slots)).
		Set(result.Version, int(version)).
		Set(result.ServerType, serverType).
		Set(result.OS, osType).
		Set(result.Password, password).
		Set(result.Bots, int(bots))

	return nil
}

func (d *sourceDriver) decodePlayers(b *buffer.Buffer, res *result.Result) error {
	if d.game.SkipPlayers {
		return nil
	}
	if custom := d.game.PlayersDecoder; custom != "" {
		return sourcePlayerDecoders[custom](b, res)
	}

	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	if count := r.u8(); count == 0 {
		return nil
	}

	for b.Len() > 0 {
		r.skip(1) // index
		name := r.cstr()
		score := r.i32()
		duration := r.f32()
		if err := r.check("source player"); err != nil {
			return err
		}

		res.AddPlayer(name, int64(score), float64(duration))
	}

	return nil
}

// decodeTheShipPlayers reads exactly the announced number of players.
func decodeTheShipPlayers(b *buffer.Buffer, res *result.Result) error {
	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	count := r.u8()

	res.Set(result.OnlinePlayers, int(count))
	for range count {
		r.skip(1)
		name := r.cstr()
		score := r.i32()
		duration := r.f32()
		if err := r.check("the ship player"); err != nil {
			return err
		}

		res.AddPlayer(name, int64(score), float64(duration))
	}

	return nil
}

func (d *sourceDriver) decodeRules(b *buffer.Buffer, res *result.Result) error {
	if d.game.SkipRules {
		return nil
	}
	if custom := d.game.RulesDecoder; custom != "" {
		return sourceRulesDecoders[custom](b, res)
	}

	if b.Len() == 0 {
		return nil
	}

	r := newReader(b)
	count := r.i16()
	if err := r.check("source rules count"); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	for b.Len() > 0 {
		res.AddRule(r.cstr(), r.cstr())
	}

	if v, ok := res.Rule("sv_version"); ok {
		res.Set(result.Version, v)
	}

	return r.check("source rules")
}
