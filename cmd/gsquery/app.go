package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/gsquery/internal/config"
	"github.com/woozymasta/gsquery/internal/filter"
	"github.com/woozymasta/gsquery/internal/format"
	"github.com/woozymasta/gsquery/internal/game"
	"github.com/woozymasta/gsquery/internal/geoip"
	"github.com/woozymasta/gsquery/internal/metrics"
	"github.com/woozymasta/gsquery/internal/models"
	"github.com/woozymasta/gsquery/internal/protocol"
	"github.com/woozymasta/gsquery/internal/query"
	"github.com/woozymasta/gsquery/internal/resolve"
	"github.com/woozymasta/gsquery/internal/socket"
)

const geoipTimeout = time.Minute

// errNoServers is returned when every configured server failed preparation.
var errNoServers = errors.New("no server left to query")

type app struct {
	cfg      *config.Config
	stdout   io.Writer
	resolver query.Resolver
	dialer   socket.Dialer
}

func newApp(cfg *config.Config, stdout io.Writer) *app {
	var tlsConfig *tls.Config
	if cfg.Query.TLSInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &app{
		cfg:      cfg,
		stdout:   stdout,
		resolver: resolve.New(nil),
		dialer: &socket.NetDialer{
			TLSConfig:  tlsConfig,
			Timeout:    cfg.Query.Timeout,
			BufferSize: cfg.Query.BufferSize,
		},
	}
}

func (a *app) run(ctx context.Context) error {
	reg, err := protocol.Default()
	if err != nil {
		return errors.Wrap(err, "load game table")
	}

	switch {
	case a.cfg.ListDrivers:
		return a.listDrivers(reg)
	case a.cfg.Detect != "":
		return a.detect(ctx, reg)
	}

	return a.query(ctx, reg)
}

func (a *app) listDrivers(reg *protocol.Registry) error {
	data := pterm.TableData{{"Driver", "Family", "Default port", "Description"}}
	for _, name := range reg.Names() {
		d, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		g := d.Game()
		data = append(data, []string{name, string(g.Family), strconv.Itoa(g.DefaultPort), g.Description})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render drivers")
	}

	_, err = io.WriteString(a.stdout, out+"\n")

	return err
}

func (a *app) detect(ctx context.Context, reg *protocol.Registry) error {
	host, portStr, err := net.SplitHostPort(a.cfg.Detect)
	if err != nil {
		return errors.Wrapf(err, "detect address %q", a.cfg.Detect)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.Wrapf(err, "detect port %q", portStr)
	}

	ip, err := a.resolver.Resolve(ctx, host)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Query.Timeout)
	defer cancel()

	found, err := game.NewDetector(reg, game.Options{
		Timeout:    a.cfg.Query.Timeout,
		BufferSize: uint16(a.cfg.Query.BufferSize), //nolint:gosec // validated to 1..65535
	}).Detect(ctx, ip, port)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	if a.cfg.Output.Pretty {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(found)
}

func (a *app) query(ctx context.Context, reg *protocol.Registry) error {
	chain, err := a.filters(reg)
	if err != nil {
		return err
	}

	formatter, err := format.New(a.cfg.Output.Format, a.cfg.Output.Pretty)
	if err != nil {
		return err
	}

	servers := make([]query.Server, 0, len(a.cfg.Servers))
	for _, spec := range a.cfg.Servers {
		srv, err := query.Prepare(ctx, reg, a.resolver, spec)
		if err != nil {
			log.Error().Err(err).Str("server", spec.String()).Msg("Skipping server")
			continue
		}
		servers = append(servers, srv)
	}
	if len(servers) == 0 {
		return errNoServers
	}

	q := query.New(a.dialer, query.Options{
		Logger:        log.Logger,
		Timeout:       a.cfg.Query.Timeout,
		StreamTimeout: a.cfg.Query.StreamTimeout,
		WriteWait:     a.cfg.Query.WriteWait,
		HTTPTimeout:   a.cfg.Query.HTTPTimeout,
		Workers:       a.cfg.Query.Workers,
		Rate:          a.cfg.Query.Rate,
		PerHost:       a.cfg.Query.PerHost,
	})

	reports := models.FromOutcomes(q.QueryAll(ctx, servers))
	log.Info().Int("servers", len(reports)).Int("online", online(reports)).Msg("Query finished")

	geo := a.openGeoIP(ctx)
	if geo != nil {
		defer func() { _ = geo.Close() }()
	}
	geo.Tag(reports)

	for i := range reports {
		if err := chain.Apply(&reports[i].Result); err != nil {
			log.Warn().Err(err).Str("address", reports[i].Address).Msg("Filter failed")
		}
	}

	if err := a.write(formatter, reports); err != nil {
		return err
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		m := metrics.New()
		m.Observe(reports)
		if err := m.WriteTextfile(path); err != nil {
			return err
		}
	}

	return nil
}

func (a *app) filters(reg *protocol.Registry) (filter.Chain, error) {
	chain := make(filter.Chain, 0, len(a.cfg.Output.Filters))
	for _, spec := range a.cfg.Output.Filters {
		f, err := filter.Parse(spec, reg)
		if err != nil {
			return nil, errors.Wrapf(err, "filter %q", spec)
		}
		chain = append(chain, f)
	}

	return chain, nil
}

// openGeoIP returns nil when country lookup is disabled or unavailable.
func (a *app) openGeoIP(ctx context.Context) *geoip.Provider {
	path := a.cfg.GeoIP.Path
	if path == "" {
		return nil
	}

	client := &http.Client{Timeout: geoipTimeout}
	if err := geoip.EnsureDB(ctx, client, path, a.cfg.GeoIP.URL, a.cfg.GeoIP.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	provider, err := geoip.Open(path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}

func (a *app) write(f format.Formatter, reports []models.Report) error {
	if a.cfg.Output.File == "" || a.cfg.Output.File == "-" {
		return f.Format(a.stdout, reports)
	}

	file, err := os.Create(a.cfg.Output.File)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}

	if err := f.Format(file, reports); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func online(reports []models.Report) int {
	n := 0
	for _, r := range reports {
		if r.Online() {
			n++
		}
	}

	return n
}
