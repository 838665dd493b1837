package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/gsquery/internal/config"
	"github.com/woozymasta/gsquery/internal/fake"
)

func startSource(t *testing.T) *fake.UDPServer {
	t.Helper()

	fs := &fake.SourceServer{
		Challenge: []byte{0x0A, 0x0B, 0x0C, 0x0D},
		Info: fake.SourceInfo(fake.Info{
			Hostname:   "^1Red ^7Server",
			Map:        "de_dust2",
			Folder:     "cstrike",
			Game:       "Counter-Strike: Source",
			Version:    "1.0.0.71",
			Players:    1,
			MaxPlayers: 16,
		}),
		Players: fake.SourcePlayers([]fake.Player{{Name: "alice", Score: 3}}),
		Rules:   fake.SourceRules([]fake.Rule{{Name: "mp_timelimit", Value: "30"}}),
	}

	udp, err := fake.ListenUDP(fs.Handle)
	require.NoError(t, err)
	t.Cleanup(func() { _ = udp.Close() })

	return udp
}

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfg, err := config.ParseArgs(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = newApp(cfg, &out).run(context.Background())

	return out.String(), err
}

func TestRunQuery(t *testing.T) {
	udp := startSource(t)
	spec := "source:" + udp.Host() + ":" + strconv.Itoa(udp.Port())
	prom := filepath.Join(t.TempDir(), "gsquery.prom")

	out, err := runArgs(t,
		"--output-filter", "colorstrip",
		"--metrics-textfile", prom,
		"--query-per-host", "0",
		spec,
	)
	require.NoError(t, err)

	var doc map[string]struct {
		General map[string]any `json:"general"`
		Meta    map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	srv, ok := doc[udp.Addr()]
	require.True(t, ok, out)
	assert.Equal(t, "Red Server", srv.General["hostname"])
	assert.Equal(t, "de_dust2", srv.General["map"])
	assert.Equal(t, "source", srv.Meta["driver"])

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gsquery_queries_total{driver="source",outcome="ok"} 1`)
}

func TestRunQueryToFile(t *testing.T) {
	udp := startSource(t)
	path := filepath.Join(t.TempDir(), "out.xml")

	out, err := runArgs(t,
		"--output-format", "xml",
		"--output-file", path,
		"source:"+udp.Host()+":"+strconv.Itoa(udp.Port()),
	)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<game-server-query>")
	assert.Contains(t, string(data), "<map>de_dust2</map>")
}

func TestRunNoServersLeft(t *testing.T) {
	_, err := runArgs(t, "quake3:127.0.0.1:27960")
	assert.ErrorIs(t, err, errNoServers)
}

func TestRunBadFilter(t *testing.T) {
	_, err := runArgs(t, "--output-filter", "shiny", "source:127.0.0.1:27015")
	assert.Error(t, err)
}

func TestRunListDrivers(t *testing.T) {
	out, err := runArgs(t, "--list-drivers")
	require.NoError(t, err)

	for _, want := range []string{"Driver", "arma3", "gamespy3", "minecraft_bedrock", "19132"} {
		assert.Contains(t, out, want)
	}
}

func TestRunDetectBadAddress(t *testing.T) {
	_, err := runArgs(t, "--detect", "no-port")
	assert.Error(t, err)
}
