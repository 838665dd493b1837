package protocol

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/gsquery/assets"
	"github.com/woozymasta/gsquery/internal/result"
)

func TestLoadEmbeddedGames(t *testing.T) {
	games, err := LoadGames(assets.Games())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(games), 45)

	families := make(map[Family]int)
	for _, g := range games {
		families[g.Family]++
	}
	for _, f := range []Family{FamilySource, FamilyGameSpy3, FamilyRakNet, FamilySAMP, FamilyFiveM} {
		assert.Positive(t, families[f], f)
	}
}

func TestLoadGamesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty name", doc: "games:\n  - family: source\n"},
		{name: "family", doc: "games:\n  - {name: x, family: quake3}\n"},
		{name: "engine", doc: "games:\n  - {name: x, family: source, engine: idtech}\n"},
		{name: "formula", doc: "games:\n  - {name: x, family: source, query_port: {formula: nope}}\n"},
		{name: "players decoder", doc: "games:\n  - {name: x, family: source, players_decoder: nope}\n"},
		{name: "rules decoder", doc: "games:\n  - {name: x, family: source, rules_decoder: nope}\n"},
		{name: "post hook", doc: "games:\n  - {name: x, family: source, post: [nope]}\n"},
		{name: "promote field", doc: "games:\n  - {name: x, family: source, promote: [{rule: a, field: bogus_field}]}\n"},
		{name: "promote type", doc: "games:\n  - {name: x, family: source, promote: [{rule: a, field: map, as: float}]}\n"},
		{name: "duplicate", doc: "games:\n  - {name: x, family: source}\n  - {name: y, family: source, aliases: [x]}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGames([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidGame)
		})
	}

	_, err := LoadGames([]byte("games: [unterminated"))
	assert.Error(t, err)
}

func TestPortRule(t *testing.T) {
	tests := []struct {
		name string
		rule PortRule
		port int
		want int
	}{
		{name: "identity", rule: PortRule{}, port: 27015, want: 27015},
		{name: "offset", rule: PortRule{Offset: 19238}, port: 7777, want: 27015},
		{name: "fixed", rule: PortRule{Fixed: 27015}, port: 7777, want: 27015},
		{name: "dayz base", rule: PortRule{Formula: "dayz"}, port: 2302, want: 27016},
		{name: "dayz second", rule: PortRule{Formula: "dayz"}, port: 2402, want: 27017},
		{name: "dayz between", rule: PortRule{Formula: "dayz"}, port: 2350, want: 27016},
		{name: "dayz below", rule: PortRule{Formula: "dayz"}, port: 2300, want: 27015},
		{name: "unknown formula", rule: PortRule{Formula: "nope"}, port: 1234, want: 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Apply(tt.port))
		})
	}
}

func TestDriverQueryPorts(t *testing.T) {
	tests := []struct {
		driver    string
		port      int
		want      int
		mandatory bool
	}{
		{driver: "arma3", port: 2302, want: 2303},
		{driver: "ark", port: 7777, want: 27015},
		{driver: "conan_exiles", port: 7777, want: 27015, mandatory: true},
		{driver: "dayz", port: 2402, want: 27017},
		{driver: "rising_storm_2", port: 7777, want: 27015},
		{driver: "squad", port: 7787, want: 27165},
		{driver: "minecraft_bedrock", port: 19132, want: 19132},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d := mustDriver(t, tt.driver)
			assert.Equal(t, tt.want, d.QueryPort(tt.port))
			assert.Equal(t, tt.mandatory, d.QueryPortMandatory())
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	d, err := reg.Lookup("cs16")
	require.NoError(t, err)
	assert.Equal(t, "counter_strike_16", d.Name())

	d, err = reg.Lookup("  ARMA3 ")
	require.NoError(t, err)
	assert.Equal(t, "arma3", d.Name())

	_, err = reg.Lookup("quake3")
	assert.ErrorIs(t, err, ErrUnknownDriver)

	names := reg.Names()
	assert.True(t, slices.IsSorted(names))
	assert.Contains(t, names, "source")
	assert.NotContains(t, names, "cs16")
}

func TestRegistrySuggestDriver(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	tests := []struct {
		description string
		want        string
		found       bool
	}{
		{description: "Arma 3", want: "arma3", found: true},
		{description: "DayZ", want: "dayz", found: true},
		{description: "DayZ Mod", want: "dayz_mod", found: true},
		{description: "PixARK", want: "pixark", found: true},
		{description: "Counter-Strike: Condition Zero", want: "counter_strike_cz", found: true},
		{description: "Some Indie Game", want: "source", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, ok := reg.SuggestDriver(FamilySource, tt.description)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.found, ok)
		})
	}
}

func TestEveryDriverIgnoresEmptyResponse(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	target := Target{IP: "127.0.0.1", Port: 27015, QueryPort: 27015}
	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			d, err := reg.Lookup(name)
			require.NoError(t, err)

			res := result.New()
			require.NoError(t, d.Decode(res, target, Response{}))
			assert.Equal(t, result.New().Snapshot(), res.Snapshot())
		})
	}
}

func TestGameFinish(t *testing.T) {
	g := &Game{
		Name:   "x",
		Family: FamilySource,
		Promote: []Promotion{
			{Rule: "name", Field: result.Hostname, Activate: true},
			{Rule: "count", Field: result.OnlinePlayers, As: "int"},
			{Rule: "locked", Field: result.Password, As: "bool"},
			{Rule: "missing", Field: result.Map},
		},
	}

	res := result.New()
	res.AddRule("name", "Server").AddRule("count", "12 players").AddRule("locked", "true")
	g.finish(res)

	snap := res.Snapshot()
	assert.Equal(t, "Server", snap.String(result.Hostname))
	assert.Equal(t, 12, snap.Int(result.OnlinePlayers))
	assert.True(t, snap.Bool(result.Password))
	assert.True(t, snap.Bool(result.Active))
	assert.Equal(t, "d", snap.String(result.ServerType))
	assert.Nil(t, snap.General[result.Map])
}

func TestGameFinishActivatesOnEmptyHostname(t *testing.T) {
	g := &Game{
		Name:    "x",
		Family:  FamilyGameSpy3,
		Promote: []Promotion{{Rule: "hostname", Field: result.Hostname, Activate: true}},
	}

	res := result.New()
	res.AddRule("hostname", "")
	g.finish(res)
	assert.True(t, res.Snapshot().Bool(result.Active))

	res = result.New()
	g.finish(res)
	assert.False(t, res.Snapshot().Bool(result.Active))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 12, toInt("12abc"))
	assert.Equal(t, -5, toInt(" -5 "))
	assert.Equal(t, 0, toInt(""))
	assert.Equal(t, 0, toInt(nil))
	assert.Equal(t, 7, toInt(uint8(7)))
	assert.Equal(t, 1, toInt(true))

	assert.False(t, toBool("0"))
	assert.False(t, toBool("false"))
	assert.True(t, toBool("Y"))
	assert.True(t, toBool(3))

	assert.Equal(t, "7", toString(uint8(7)))
	assert.Equal(t, "1.5", toString(1.5))
	assert.Equal(t, "", toString(nil))
}
