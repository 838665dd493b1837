package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/gsquery/internal/fake"
	"github.com/woozymasta/gsquery/internal/result"
)

var minecraftRules = []fake.Rule{
	{Name: "hostname", Value: "A Minecraft Server"},
	{Name: "gametype", Value: "SMP"},
	{Name: "game_id", Value: "MINECRAFT"},
	{Name: "version", Value: "1.20.1"},
	{Name: "plugins", Value: ""},
	{Name: "map", Value: "world"},
	{Name: "numplayers", Value: "2"},
	{Name: "maxplayers", Value: "20"},
	{Name: "hostport", Value: "25565"},
	{Name: "hostip", Value: "127.0.0.1"},
}

func TestGameSpy3Requests(t *testing.T) {
	d := mustDriver(t, "minecraft")

	assert.True(t, d.Blocking())
	assert.Equal(t, []byte{0xFE, 0xFD, 0x09, 0x10, 0x20, 0x30, 0x40}, d.ChallengeRequest())
	assert.Equal(t, []PacketKind{KindAll}, d.Kinds())
	assert.Equal(t,
		[]byte{0xFE, 0xFD, 0x00, 0x10, 0x20, 0x30, 0x40, 0x00, 0x91, 0x29, 0x5B, 0xFF, 0xFF, 0xFF, 0x01},
		d.Request(KindAll, Target{}, []byte{0x00, 0x91, 0x29, 0x5B}))
}

func TestGameSpy3ParseChallenge(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  []byte
	}{
		{name: "positive", token: "9513307", want: []byte{0x00, 0x91, 0x29, 0x5B}},
		{name: "negative", token: "-12345", want: []byte{0xFF, 0xFF, 0xCF, 0xC7}},
		{name: "empty", token: "", want: nil},
	}

	d := mustDriver(t, "gamespy3")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ParseChallenge([][]byte{fake.GameSpy3Challenge(tt.token)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := d.ParseChallenge([][]byte{fake.GameSpy3Challenge("abc")})
	assert.ErrorIs(t, err, ErrFrameVerification)
}

func TestGameSpy3DecodeMinecraft(t *testing.T) {
	payload := fake.GameSpy3Payload(minecraftRules, []string{"Steve", "Alex"})

	snap := decode(t, mustDriver(t, "minecraft"), Target{}, Response{
		Frames: [][]byte{fake.GameSpy3Frame(0x80, payload)},
	})

	assert.True(t, snap.Bool(result.Active))
	assert.Equal(t, "d", snap.String(result.ServerType))
	assert.Equal(t, "A Minecraft Server", snap.String(result.Hostname))
	assert.Equal(t, "1.20.1", snap.String(result.Version))
	assert.Equal(t, "world", snap.String(result.Map))
	assert.Equal(t, 2, snap.Int(result.OnlinePlayers))
	assert.Equal(t, 20, snap.Int(result.Slots))
	assert.Equal(t, "SMP", snap.Rules["gametype"])
	assert.Equal(t, "", snap.Rules["plugins"])

	require.Len(t, snap.Players, 2)
	assert.Equal(t, "Steve", *snap.Players[0].Name)
	assert.Equal(t, "Alex", *snap.Players[1].Name)
}

func TestGameSpy3DecodeLatin1(t *testing.T) {
	payload := fake.GameSpy3Payload([]fake.Rule{{Name: "hostname", Value: "Caf\xe9"}}, []string{"J\xfcrgen"})

	snap := decode(t, mustDriver(t, "gamespy3"), Target{}, Response{
		Frames: [][]byte{fake.GameSpy3Frame(0x80, payload)},
	})

	assert.Equal(t, "Café", snap.String(result.Hostname))
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Jürgen", *snap.Players[0].Name)
}

func TestGameSpy3DecodeSplitOutOfOrder(t *testing.T) {
	head := fake.BE()
	for _, r := range minecraftRules {
		head.CString(r.Name).CString(r.Value)
	}
	head.U8(0).U8(1).CString("player_").U8(0).CString("Steve")

	tail := fake.BE().CString("player_").U8(0).CString("Alex").U8(0)

	frames := [][]byte{
		fake.GameSpy3Frame(0x81, tail.Bytes()),
		fake.GameSpy3Frame(0x00, head.Bytes()),
	}

	snap := decode(t, mustDriver(t, "minecraft"), Target{}, Response{Frames: frames})

	require.Len(t, snap.Players, 2)
	assert.Equal(t, "Steve", *snap.Players[0].Name)
	assert.Equal(t, "Alex", *snap.Players[1].Name)
}

func TestGameSpy3PlayerFieldGroups(t *testing.T) {
	section := []byte("player_\x00\x00Steve\x00Alex\x00\x00score_\x00\x0010\x0020\x00\x00team_t\x00\x00Red\x00\x00")

	res := result.New()
	decodeGameSpy3Players(section, res)

	players := res.Players()
	require.Len(t, players, 2)
	assert.Equal(t, "Steve", *players[0].Name)
	assert.Equal(t, int64(10), players[0].Score)
	assert.Equal(t, "Alex", *players[1].Name)
	assert.Equal(t, int64(20), players[1].Score)
}

func TestDedupGameSpy3(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "trailing variable repeated in next fragment",
			in:   []string{"a\x00b\x00team_\x00", "x\x00\x00team_\x00\x00red\x00"},
			want: []string{"a\x00b\x00", "x\x00\x00team_\x00\x00red\x00"},
		},
		{
			name: "leading field name repeated",
			in:   []string{"player_\x00\x00Steve\x00", "player_\x00\x00Alex\x00"},
			want: []string{"player_\x00\x00Steve\x00", "Alex\x00"},
		},
		{
			name: "unrelated fragments",
			in:   []string{"k\x00v\x00", "q\x00w\x00"},
			want: []string{"k\x00v\x00", "q\x00w\x00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := make([][]byte, len(tt.in))
			for i, s := range tt.in {
				parts[i] = []byte(s)
			}

			got := dedupGameSpy3(parts)

			out := make([]string, len(got))
			for i, p := range got {
				out[i] = string(p)
			}
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGameSpy3ShortFrame(t *testing.T) {
	res := result.New()
	err := mustDriver(t, "gamespy3").Decode(res, Target{}, Response{Frames: [][]byte{{0x00, 0x01}}})
	assert.ErrorIs(t, err, ErrFrameVerification)
}
