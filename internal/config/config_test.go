package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/gsquery/internal/query"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs([]string{"source:127.0.0.1:27015"})
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Query.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Query.StreamTimeout)
	assert.Equal(t, 500*time.Microsecond, cfg.Query.WriteWait)
	assert.Equal(t, 10, cfg.Query.Workers)
	assert.Equal(t, 2, cfg.Query.PerHost)
	assert.Equal(t, 65535, cfg.Query.BufferSize)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, []string{"utf8"}, cfg.Output.Filters)
	assert.Equal(t, "-", cfg.Output.File)
	assert.Empty(t, cfg.GeoIP.Path)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, []query.Spec{{Driver: "source", Host: "127.0.0.1", Port: 27015}}, cfg.Servers)
}

func TestParseArgsOptions(t *testing.T) {
	cfg, err := ParseArgs([]string{
		"--query-timeout", "1s",
		"--query-workers", "4",
		"--output-format", "table",
		"--output-filter", "colorstrip",
		"--output-filter", "utf8=general.hostname,players",
		"--log-level", "debug",
		"dayz:dayz.example.com:2302:27016",
		"arma3:10.0.0.1:2302",
	})
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Query.Timeout)
	assert.Equal(t, 4, cfg.Query.Workers)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, []string{"colorstrip", "utf8=general.hostname,players"}, cfg.Output.Filters)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, []query.Spec{
		{Driver: "dayz", Host: "dayz.example.com", Port: 2302, QueryPort: 27016},
		{Driver: "arma3", Host: "10.0.0.1", Port: 2302},
	}, cfg.Servers)
}

func TestParseArgsServersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
servers:
  - driver: rust
    host: rust.example.com
    port: 28015
  - driver: dayz
    host: 10.0.0.2
    port: 2302
    query_port: 27016
`), 0o600))

	cfg, err := ParseArgs([]string{"--servers-file", path, "source:127.0.0.1:27015"})
	require.NoError(t, err)

	assert.Equal(t, []query.Spec{
		{Driver: "rust", Host: "rust.example.com", Port: 28015},
		{Driver: "dayz", Host: "10.0.0.2", Port: 2302, QueryPort: 27016},
		{Driver: "source", Host: "127.0.0.1", Port: 27015},
	}, cfg.Servers)
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no servers", nil, ErrInvalid},
		{"bad spec", []string{"source:127.0.0.1"}, query.ErrInvalidSpec},
		{"zero workers", []string{"--query-workers", "0", "source:h:27015"}, ErrInvalid},
		{"negative timeout", []string{"--query-timeout=-1s", "source:h:27015"}, ErrInvalid},
		{"buffer too large", []string{"--query-buffer-size", "70000", "source:h:27015"}, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseArgsFlagErrors(t *testing.T) {
	_, err := ParseArgs([]string{"--output-format", "yaml", "source:h:27015"})
	var flagsErr *flags.Error
	require.ErrorAs(t, err, &flagsErr)
	assert.Equal(t, flags.ErrInvalidChoice, flagsErr.Type)

	_, err = ParseArgs([]string{"--help"})
	require.ErrorAs(t, err, &flagsErr)
	assert.Equal(t, flags.ErrHelp, flagsErr.Type)
}

func TestParseArgsModesWithoutServers(t *testing.T) {
	for _, args := range [][]string{{"--list-drivers"}, {"--version"}, {"--detect", "10.0.0.1:27016"}} {
		_, err := ParseArgs(args)
		assert.NoError(t, err, args)
	}
}

func TestLoadServers(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.yaml")
	_, err := LoadServers(missing)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("servers: [\n"), 0o600))
	_, err = LoadServers(broken)
	assert.Error(t, err)

	incomplete := filepath.Join(dir, "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("servers:\n  - port: 27015\n"), 0o600))
	_, err = LoadServers(incomplete)
	assert.ErrorIs(t, err, query.ErrInvalidSpec)
}
