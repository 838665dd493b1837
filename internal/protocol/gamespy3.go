package protocol

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/woozymasta/gsquery/internal/buffer"
	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

var (
	gamespy3ChallengeRequest = []byte{0xFE, 0xFD, 0x09, 0x10, 0x20, 0x30, 0x40}
	gamespy3AllPrefix        = []byte{0xFE, 0xFD, 0x00, 0x10, 0x20, 0x30, 0x40}
	gamespy3AllSuffix        = []byte{0xFF, 0xFF, 0xFF, 0x01}

	gamespy3SectionSplit = []byte{0x00, 0x00, 0x01}
	gamespy3ItemSplit    = []byte{0x00, 0x00}
)

type gamespy3Driver struct {
	base
}

func newGameSpy3Driver(g *Game) *gamespy3Driver {
	return &gamespy3Driver{base: base{game: g}}
}

func (d *gamespy3Driver) Transport() socket.Transport { return socket.UDP }
func (d *gamespy3Driver) Blocking() bool              { return true }

func (d *gamespy3Driver) ChallengeRequest() []byte {
	return gamespy3ChallengeRequest
}

// ParseChallenge reads the ASCII challenge after the type and session id and
// packs it as a big endian int32. Servers that do not use challenges answer
// with an empty string.
func (d *gamespy3Driver) ParseChallenge(frames [][]byte) ([]byte, error) {
	if len(frames) == 0 {
		return nil, nil
	}

	r := newReader(buffer.New(frames[0], buffer.BigEndian))
	r.u8()
	r.u32()
	text := strings.TrimSpace(r.cstr())
	if err := r.check("gamespy3 challenge"); err != nil {
		return nil, &FrameError{What: "gamespy3 challenge", Actual: frames[0]}
	}
	if text == "" {
		return nil, nil
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, &FrameError{What: "gamespy3 challenge", Actual: frames[0]}
	}

	return binary.BigEndian.AppendUint32(nil, uint32(int32(n))), nil
}

func (d *gamespy3Driver) Kinds() []PacketKind {
	return []PacketKind{KindAll}
}

func (d *gamespy3Driver) Request(kind PacketKind, _ Target, challenge []byte) []byte {
	if kind != KindAll {
		return nil
	}

	return concat(gamespy3AllPrefix, challenge, gamespy3AllSuffix)
}

func (d *gamespy3Driver) Decode(res *result.Result, _ Target, resp Response) error {
	if len(resp.Frames) == 0 {
		return nil
	}

	parts, err := extractGameSpy3(resp.Frames)
	if err != nil {
		return err
	}

	sections := bytes.Split(bytes.Join(dedupGameSpy3(parts), nil), gamespy3SectionSplit)
	decodeGameSpy3Info(buffer.New(sections[0], buffer.BigEndian), res)
	if len(sections) > 1 {
		decodeGameSpy3Players(sections[1], res)
	}

	d.game.finish(res)

	return nil
}

func decodeGameSpy3Info(b *buffer.Buffer, res *result.Result) {
	for b.Len() > 0 {
		key := b.ReadCString()
		if key == "" {
			return
		}

		res.AddRule(key, latin1(b.ReadCString()))
	}
}

type gamespy3Group int

const (
	gamespy3NoGroup gamespy3Group = iota
	gamespy3Players
	gamespy3Teams
)

// decodeGameSpy3Players walks the field groups of the player and team section.
// A group header is a field name ending in "_" (players) or "_t" (teams),
// followed by the NUL separated values of that field.
func decodeGameSpy3Players(section []byte, res *result.Result) {
	items := bytes.Split(section, gamespy3ItemSplit)

	var (
		group  = gamespy3NoGroup
		field  string
		names  []string
		scores []int64
	)

	for _, item := range items[:max(len(items)-1, 0)] {
		if len(item) == 0 || bytes.Equal(item, []byte{0}) {
			continue
		}

		name := string(item)
		switch {
		case strings.HasSuffix(name, "_t"):
			group, field = gamespy3Teams, name
			continue
		case strings.HasSuffix(name, "_"):
			group, field = gamespy3Players, name
			continue
		}

		if group != gamespy3Players {
			continue
		}

		b := buffer.New(item, buffer.BigEndian)
		for b.Len() > 0 {
			value := b.ReadCString()
			if value == "" {
				break
			}

			switch field {
			case "player_":
				names = append(names, latin1(strings.TrimSpace(value)))
			case "score_":
				n, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
				scores = append(scores, n)
			}
		}
	}

	for i, name := range names {
		var score int64
		if i < len(scores) {
			score = scores[i]
		}
		res.AddPlayer(name, score, 0)
	}
}
