package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultDefaults(t *testing.T) {
	s := New().Snapshot()

	assert.Len(t, s.General, len(Fields()))
	assert.Equal(t, false, s.General[Active])
	assert.Nil(t, s.General[Hostname])
	assert.Nil(t, s.General[Map])
	assert.Nil(t, s.General[Version])
	assert.Equal(t, 0, s.General[OnlinePlayers])
	assert.Equal(t, 0, s.General[Slots])
	assert.Equal(t, 0, s.General[Bots])
	assert.Equal(t, false, s.General[Password])
	assert.Empty(t, s.Players)
	assert.Empty(t, s.Rules)
}

func TestResultFieldGuard(t *testing.T) {
	r := New()

	err := r.AddInformation("bogus_field", 1)
	require.ErrorIs(t, err, ErrInvalidField)

	require.NoError(t, r.AddInformation("hostname", "foo"))
	v, err := r.Information("hostname")
	require.NoError(t, err)
	assert.Equal(t, "foo", v)

	_, err = r.Information("bogus_field")
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.Panics(t, func() { r.Set("bogus_field", 1) })
	assert.NotPanics(t, func() { r.Set(Map, "de_dust2") })
}

func TestResultPlayers(t *testing.T) {
	r := New().
		AddPlayer("  alice ", 10, 1.5).
		AddPlayer("", 99, 12).
		AddPlayer("   ", 1, 1).
		AddPlayer("bob", -3, 0)

	players := r.Players()
	require.Len(t, players, 4)

	require.NotNil(t, players[0].Name)
	assert.Equal(t, "alice", *players[0].Name)
	assert.Equal(t, int64(10), players[0].Score)

	for _, p := range players[1:3] {
		assert.Nil(t, p.Name)
		assert.Zero(t, p.Score)
		assert.Zero(t, p.OnlineTime)
	}

	assert.Equal(t, "bob", *players[3].Name)
}

func TestResultRules(t *testing.T) {
	r := New().AddRule("sv_gravity", "800").AddRule("sv_gravity", "600").AddRule("mp_timelimit", 30)

	v, ok := r.Rule("sv_gravity")
	assert.True(t, ok)
	assert.Equal(t, "600", v)
	assert.True(t, r.HasRule("mp_timelimit"))
	assert.False(t, r.HasRule("missing"))
	assert.Equal(t, []string{"mp_timelimit", "sv_gravity"}, r.RuleNames())

	r.RemoveRule("mp_timelimit")
	assert.False(t, r.HasRule("mp_timelimit"))
}

func TestSnapshotIsDetached(t *testing.T) {
	r := New().AddPlayer("alice", 1, 1).AddRule("raw", map[string]string{"a": "1"})
	r.Set(Hostname, "before")

	s := r.Snapshot()
	*s.Players[0].Name = "mallory"
	s.General[Hostname] = "changed"
	s.Rules["raw"].(map[string]string)["a"] = "2"

	again := r.Snapshot()
	assert.Equal(t, "alice", *again.Players[0].Name)
	assert.Equal(t, "before", again.General[Hostname])
	assert.Equal(t, "1", again.Rules["raw"].(map[string]string)["a"])

	r.Set(Hostname, "after")
	assert.Equal(t, "changed", s.General[Hostname])
}

func TestSnapshotSections(t *testing.T) {
	s := New().AddPlayer("", 0, 0).Snapshot()

	for _, name := range []string{SectionGeneral, SectionPlayers, SectionRules} {
		_, err := s.Section(name)
		assert.NoError(t, err, name)
	}

	_, err := s.Section("teams")
	assert.ErrorIs(t, err, ErrUnknownSection)

	m := s.ToMap()
	players := m[SectionPlayers].([]map[string]any)
	require.Len(t, players, 1)
	assert.Nil(t, players[0]["name"])
}

func TestSnapshotAccessors(t *testing.T) {
	r := New()
	r.Set(Active, true).Set(Slots, 32).Set(ServerType, "d").Set(Hostname, "srv")

	s := r.Snapshot()
	assert.True(t, s.Bool(Active))
	assert.Equal(t, 32, s.Int(Slots))
	assert.Equal(t, "d", s.String(ServerType))
	assert.Equal(t, "srv", s.String(Hostname))
	assert.Equal(t, "", s.String(Map))
}
