package fake

import (
	"strconv"
	"strings"
)

// GameSpy3Session is the session id echoed by GameSpy3 replies.
const GameSpy3Session uint32 = 0x10203040

// GameSpy3Challenge is a challenge reply carrying the ASCII token.
func GameSpy3Challenge(token string) []byte {
	return BE().U8(0x09).U32(GameSpy3Session).CString(token).Bytes()
}

// GameSpy3Frame wraps one fragment of a full status reply.
func GameSpy3Frame(id byte, payload []byte) []byte {
	return BE().U8(0x00).U32(GameSpy3Session).CString("splitnum").U8(id).U8(0).Raw(payload).Bytes()
}

// GameSpy3Payload renders the key/value section, then the player names.
func GameSpy3Payload(rules []Rule, players []string) []byte {
	w := BE()
	for _, r := range rules {
		w.CString(r.Name).CString(r.Value)
	}
	w.U8(0).U8(1).CString("player_").U8(0)
	for _, p := range players {
		w.CString(p)
	}
	w.U8(0)

	return w.Bytes()
}

// RakNetMagic is the offline message id.
var RakNetMagic = []byte{
	0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE,
	0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78,
}

// RakNetPong is an unconnected pong carrying the semicolon separated server id.
func RakNetPong(guid uint64, fields ...string) []byte {
	id := strings.Join(fields, ";")
	return BE().U8(0x1C).U64(1).U64(guid).Raw(RakNetMagic).U16(uint16(len(id))).Str(id).Bytes()
}

// SAMPFrame is a SA-MP reply: header, challenge echo, opcode and body.
func SAMPFrame(challenge []byte, op byte, body []byte) []byte {
	return LE().Str("SAMP").Raw(challenge).U8(op).Raw(body).Bytes()
}

// SAMPStatus renders the body of an 'i' reply.
func SAMPStatus(password bool, online, slots uint16, hostname, gametype, language string) []byte {
	return LE().Bool(password).U16(online).U16(slots).Long(hostname).Long(gametype).Long(language).Bytes()
}

// SAMPPlayers renders the body of a 'd' reply.
func SAMPPlayers(players []Player) []byte {
	w := LE().U16(uint16(len(players)))
	for i, p := range players {
		w.U8(uint8(i)).Pascal(p.Name).I32(p.Score).I32(50)
	}

	return w.Bytes()
}

// SAMPRules renders the body of an 'r' reply.
func SAMPRules(rules []Rule) []byte {
	w := LE().U16(uint16(len(rules)))
	for _, r := range rules {
		w.Pascal(r.Name).Pascal(r.Value)
	}

	return w.Bytes()
}

// FiveMInfo is a getinfo reply with the given key/value pairs.
func FiveMInfo(rules []Rule) []byte {
	var sb strings.Builder
	for _, r := range rules {
		sb.WriteString(`\` + r.Name + `\` + r.Value)
	}

	return LE().Raw(Envelope).Str("infoResponse\n").Str(sb.String()).Bytes()
}

// FiveMPlayers renders a players.json document.
func FiveMPlayers(names ...string) []byte {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = `{"id":` + strconv.Itoa(i+1) + `,"name":` + strconv.Quote(n) + `,"ping":42}`
	}

	return []byte("[" + strings.Join(parts, ",") + "]")
}
