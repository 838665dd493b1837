// Package protocol implements the query drivers of every supported protocol family:
// request encoding, challenge handling, packet reassembly and decoding into a result.
//
// A driver is built from a Game record. Per-game differences (query port arithmetic,
// skipped sections, rule promotions) are data in assets/games.yaml, not code.
package protocol

import (
	"context"
	"net/http"

	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

// Family is a wire protocol shared by a group of games.
type Family string

// Supported families.
const (
	FamilySource   Family = "source"
	FamilyGameSpy3 Family = "gamespy3"
	FamilyRakNet   Family = "raknet"
	FamilySAMP     Family = "samp"
	FamilyFiveM    Family = "fivem"
)

// PacketKind names a request template.
type PacketKind string

// Request templates.
const (
	KindChallenge PacketKind = "challenge"
	KindInfo      PacketKind = "info"
	KindStatus    PacketKind = "status"
	KindPlayers   PacketKind = "players"
	KindRules     PacketKind = "rules"
	KindAll       PacketKind = "all"
)

// Target is the resolved endpoint of one query.
type Target struct {
	IP        string
	Port      int
	QueryPort int
}

// Response holds everything collected for one server.
type Response struct {
	// Frames are the main stage frames in arrival order.
	Frames [][]byte
	// Extra is an out-of-band payload fetched by a Supplementer.
	Extra []byte
}

// Empty reports whether nothing was received.
func (r Response) Empty() bool {
	return len(r.Frames) == 0 && len(r.Extra) == 0
}

// Driver encodes requests and decodes responses of one game.
type Driver interface {
	Name() string
	Family() Family
	Game() *Game
	Transport() socket.Transport
	Blocking() bool
	QueryPortMandatory() bool
	QueryPort(port int) int

	// ChallengeRequest returns the frame that elicits a challenge, nil when no round trip is needed.
	ChallengeRequest() []byte
	// ParseChallenge extracts the challenge from the frames of the challenge stage.
	// A nil challenge without error means the server did not ask for one.
	ParseChallenge(frames [][]byte) ([]byte, error)

	// Kinds lists the main requests in the order they are sent.
	Kinds() []PacketKind
	// Request renders one main request.
	Request(kind PacketKind, t Target, challenge []byte) []byte

	// Decode fills res from the collected response. An empty response leaves res untouched.
	Decode(res *result.Result, t Target, resp Response) error
}

// Rechallenger is implemented by drivers whose servers may answer a main request
// with a fresh challenge instead of, or next to, data. Rechallenge reports the
// challenge found in frames and returns the remaining data frames.
type Rechallenger interface {
	Rechallenge(frames [][]byte) (challenge []byte, data [][]byte, found bool)
}

// Supplementer is implemented by drivers that fetch part of their data over HTTP.
type Supplementer interface {
	Supplement(ctx context.Context, client *http.Client, t Target) ([]byte, error)
}

type base struct {
	game *Game
}

func (b base) Name() string             { return b.game.Name }
func (b base) Family() Family           { return b.game.Family }
func (b base) Game() *Game              { return b.game }
func (b base) QueryPortMandatory() bool { return b.game.QueryPortMandatory }
func (b base) QueryPort(port int) int   { return b.game.QueryPort.Apply(port) }

func concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}

	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
