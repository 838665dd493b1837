// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/gsquery/internal/format"
	"github.com/woozymasta/gsquery/internal/logger"
	"github.com/woozymasta/gsquery/internal/query"
	"github.com/woozymasta/gsquery/internal/vars"
)

// ErrInvalid is returned for option values that parse but make no sense.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Query   Query         `group:"Query Options" namespace:"query" env-namespace:"GSQ_QUERY"`
	Output  Output        `group:"Output Options" namespace:"output" env-namespace:"GSQ_OUTPUT"`
	GeoIP   GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"GSQ_GEOIP"`
	Metrics Metrics       `group:"Metrics Options" namespace:"metrics" env-namespace:"GSQ_METRICS"`
	Logger  logger.Config `group:"Logger Options" namespace:"log" env-namespace:"GSQ_LOG"`

	ServersFile string `short:"f" long:"servers-file" env:"GSQ_SERVERS_FILE" description:"YAML file with a servers list"`
	Detect      string `short:"d" long:"detect" description:"Probe host:port and suggest a driver"`
	ListDrivers bool   `short:"L" long:"list-drivers" description:"Print known drivers and exit"`
	Version     bool   `short:"v" long:"version" description:"Print version and build info"`

	Args struct {
		Servers []string `positional-arg-name:"driver:host:port[:query_port]"`
	} `positional-args:"yes"`

	// Servers holds the servers file entries followed by the positional ones.
	Servers []query.Spec `no-flag:"true"`
}

// Query holds the query engine configuration.
type Query struct {
	// betteralign:ignore

	Timeout       time.Duration `short:"t" long:"timeout" env:"TIMEOUT" description:"Deadline of a whole server query" default:"3s"`
	StreamTimeout time.Duration `long:"stream-timeout" env:"STREAM_TIMEOUT" description:"Wait for the next frame of a response" default:"200ms"`
	WriteWait     time.Duration `long:"write-wait" env:"WRITE_WAIT" description:"Pause between request packets" default:"500us"`
	Workers       int           `short:"w" long:"workers" env:"WORKERS" description:"Servers queried in parallel" default:"10"`
	Rate          float64       `long:"rate" env:"RATE" description:"Query starts per second, 0 is unlimited" default:"0"`
	PerHost       int           `long:"per-host" env:"PER_HOST" description:"Query starts per second against one IP, 0 is unlimited" default:"2"`
	BufferSize    int           `long:"buffer-size" env:"BUFFER_SIZE" description:"Socket read buffer size" default:"65535"`
	TLSInsecure   bool          `long:"tls-insecure" env:"TLS_INSECURE" description:"Skip certificate verification for ssl and tls transports"`
	HTTPTimeout   time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" description:"Timeout of HTTP based queries" default:"2s"`
}

// Output holds report rendering configuration.
type Output struct {
	// betteralign:ignore

	Format  string   `short:"o" long:"format" env:"FORMAT" description:"Output format" choice:"json" choice:"xml" choice:"table" choice:"array" default:"json"`
	Pretty  bool     `short:"p" long:"pretty" env:"PRETTY" description:"Indent json and xml output"`
	Filters []string `short:"F" long:"filter" env:"FILTER" env-delim:";" description:"Output filter as name[=section[.key],...], repeatable" default:"utf8"`
	File    string   `long:"file" env:"FILE" description:"Write output to file, - is stdout" default:"-"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Refresh the MMDB file when older than this" default:"24h"`
}

// Metrics holds Prometheus textfile configuration.
type Metrics struct {
	Textfile string `long:"textfile" env:"TEXTFILE" description:"Write run metrics to this .prom file"`
}

// ParseArgs reads the configuration from args and environment variables.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.load(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Parse reads the configuration from os.Args and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// load collects servers from the servers file and the positional arguments.
func (c *Config) load() error {
	if c.ServersFile != "" {
		servers, err := LoadServers(c.ServersFile)
		if err != nil {
			return err
		}
		c.Servers = append(c.Servers, servers...)
	}

	for _, arg := range c.Args.Servers {
		spec, err := query.ParseSpec(arg)
		if err != nil {
			return err
		}
		c.Servers = append(c.Servers, spec)
	}

	return nil
}

// Validate checks the values go-flags cannot.
func (c *Config) Validate() error {
	q := c.Query
	for name, d := range map[string]time.Duration{
		"timeout":        q.Timeout,
		"stream-timeout": q.StreamTimeout,
		"write-wait":     q.WriteWait,
		"http-timeout":   q.HTTPTimeout,
	} {
		if d < 0 {
			return errors.Wrapf(ErrInvalid, "query %s %s is negative", name, d)
		}
	}

	switch {
	case q.Workers < 1:
		return errors.Wrapf(ErrInvalid, "query workers %d, want at least 1", q.Workers)
	case q.Rate < 0:
		return errors.Wrapf(ErrInvalid, "query rate %g is negative", q.Rate)
	case q.PerHost < 0:
		return errors.Wrapf(ErrInvalid, "query per-host %d is negative", q.PerHost)
	case q.BufferSize < 1 || q.BufferSize > 65535:
		return errors.Wrapf(ErrInvalid, "query buffer-size %d out of 1..65535", q.BufferSize)
	case !slices.Contains(format.Names(), c.Output.Format):
		return errors.Wrapf(ErrInvalid, "output format %q", c.Output.Format)
	case c.Version || c.ListDrivers || c.Detect != "":
		return nil
	case len(c.Servers) == 0:
		return errors.Wrap(ErrInvalid, "no servers given")
	}

	return nil
}

type serversFile struct {
	Servers []query.Spec `yaml:"servers"`
}

// LoadServers reads a YAML document with a servers list.
func LoadServers(path string) ([]query.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read servers file")
	}

	var doc serversFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse servers file %s", path)
	}

	for i, s := range doc.Servers {
		if s.Driver == "" || s.Host == "" {
			return nil, errors.Wrapf(query.ErrInvalidSpec, "%s: entry %d needs driver and host", path, i+1)
		}
	}

	return doc.Servers, nil
}
