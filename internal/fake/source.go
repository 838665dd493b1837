package fake

import (
	"bytes"
	"strings"
)

// Envelope prefixes single Source packets and the first fragment of split ones.
var Envelope = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// Info describes an A2S info reply. Zero EDF fields are left out of the reply.
type Info struct {
	Hostname   string
	Map        string
	Folder     string
	Game       string
	Version    string
	Keywords   string
	SourceTV   string
	SteamID    uint64
	GameID     uint64
	AppID      uint16
	Port       uint16
	TVPort     uint16
	Players    uint8
	MaxPlayers uint8
	Bots       uint8
	Protocol   uint8
	ServerType byte
	OS         byte
	Password   bool
	VAC        bool
}

// Player is one entry of a players reply.
type Player struct {
	Name     string
	Score    int32
	Duration float32
}

// Rule is one cvar of a rules reply.
type Rule struct {
	Name  string
	Value string
}

// SourceSingle wraps a payload in a single packet header.
func SourceSingle(payload []byte) []byte {
	return LE().Raw(Envelope).Raw(payload).Bytes()
}

// SourceChallenge is a challenge reply.
func SourceChallenge(challenge []byte) []byte {
	return LE().Raw(Envelope).U8(0x41).Raw(challenge).Bytes()
}

// SourceSplit builds one uncompressed Source fragment. Fragment 0 should carry
// the envelope at the start of body.
func SourceSplit(id int32, total, number int, body []byte) []byte {
	return LE().I32(-2).I32(id).U8(uint8(total)).U8(uint8(number)).U16(1248).Raw(body).Bytes()
}

// SourceCompressedSplit builds one bzip2 fragment. id must carry the compression bit.
func SourceCompressedSplit(id uint32, total, number int, size int32, crc uint32, body []byte) []byte {
	return LE().I32(-2).U32(id).U8(uint8(total)).U8(uint8(number)).I32(size).U32(crc).Raw(body).Bytes()
}

// GoldSourceSplit builds one GoldSource fragment with the packed number and total byte.
func GoldSourceSplit(id int32, total, number int, body []byte) []byte {
	return LE().I32(-2).I32(id).U8(uint8(number<<4 | total)).Raw(body).Bytes()
}

// SplitPayload cuts a Source payload into uncompressed fragments of at most
// size bytes each. The envelope is prepended to the first chunk.
func SplitPayload(id int32, payload []byte, size int) [][]byte {
	data := append(bytes.Clone(Envelope), payload...)

	var chunks [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}

	frames := make([][]byte, len(chunks))
	for i, c := range chunks {
		frames[i] = SourceSplit(id, len(chunks), i, c)
	}

	return frames
}

// SourceInfo renders an info payload starting with marker 0x49.
func SourceInfo(info Info) []byte {
	w := LE().U8(0x49).U8(info.Protocol).
		CString(info.Hostname).CString(info.Map).CString(info.Folder).CString(info.Game).
		U16(info.AppID).U8(info.Players).U8(info.MaxPlayers).U8(info.Bots).
		U8(orDefault(info.ServerType, 'd')).U8(orDefault(info.OS, 'l')).
		Bool(info.Password).Bool(info.VAC)

	if info.AppID == 2400 {
		w.U8(1).U8(2).U8(3)
	}
	w.CString(info.Version)

	var edf uint8
	if info.Port != 0 {
		edf |= 0x80
	}
	if info.SteamID != 0 {
		edf |= 0x10
	}
	if info.TVPort != 0 {
		edf |= 0x40
	}
	if info.Keywords != "" {
		edf |= 0x20
	}
	if info.GameID != 0 {
		edf |= 0x01
	}
	if edf == 0 {
		return w.Bytes()
	}

	w.U8(edf)
	if edf&0x80 != 0 {
		w.U16(info.Port)
	}
	if edf&0x10 != 0 {
		w.U64(info.SteamID)
	}
	if edf&0x40 != 0 {
		w.U16(info.TVPort).CString(info.SourceTV)
	}
	if edf&0x20 != 0 {
		w.CString(info.Keywords)
	}
	if edf&0x01 != 0 {
		w.U64(info.GameID)
	}

	return w.Bytes()
}

// GoldSourceInfo renders an obsolete GoldSource info payload starting with marker 0x6D.
func GoldSourceInfo(address string, info Info) []byte {
	return LE().U8(0x6D).
		CString(address).CString(info.Hostname).CString(info.Map).CString(info.Folder).CString(info.Game).
		U8(info.Players).U8(info.MaxPlayers).U8(info.Protocol).
		U8(orDefault(info.ServerType, 'd')).U8(orDefault(info.OS, 'l')).
		Bool(info.Password).
		U8(0). // not a mod
		Bool(info.VAC).U8(info.Bots).
		Bytes()
}

// SourcePlayers renders a players payload starting with marker 0x44.
func SourcePlayers(players []Player) []byte {
	w := LE().U8(0x44).U8(uint8(len(players)))
	for i, p := range players {
		w.U8(uint8(i)).CString(p.Name).I32(p.Score).F32(p.Duration)
	}

	return w.Bytes()
}

// SourceRules renders a rules payload starting with marker 0x45.
func SourceRules(rules []Rule) []byte {
	w := LE().U8(0x45).I16(int16(len(rules)))
	for _, r := range rules {
		w.CString(r.Name).CString(r.Value)
	}

	return w.Bytes()
}

// SourceServer answers A2S requests the way a server that enforces challenges does.
type SourceServer struct {
	Challenge []byte
	Info      []byte
	Players   []byte
	Rules     []byte
	// SplitSize cuts payloads above this size into fragments. Zero disables splitting.
	SplitSize int
}

// Handle implements Handler.
func (s *SourceServer) Handle(req []byte) [][]byte {
	if len(req) < 5 || !bytes.HasPrefix(req, Envelope) {
		return nil
	}

	var payload []byte
	switch req[4] {
	case 'T':
		payload = s.Info
	case 'U':
		payload = s.Players
	case 'V':
		payload = s.Rules
	default:
		return nil
	}

	challenge := req[len(req)-min(4, len(req)):]
	if req[4] == 'T' && strings.HasSuffix(string(req), "Query\x00") {
		challenge = nil
	}
	if len(s.Challenge) > 0 && !bytes.Equal(challenge, s.Challenge) {
		return [][]byte{SourceChallenge(s.Challenge)}
	}
	if payload == nil {
		return nil
	}

	if s.SplitSize > 0 && len(payload) > s.SplitSize {
		return SplitPayload(0x0102, payload, s.SplitSize)
	}

	return [][]byte{SourceSingle(payload)}
}

func orDefault(v, def byte) byte {
	if v == 0 {
		return def
	}
	return v
}
