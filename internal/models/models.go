// Package models defines the report handed from the query run to filters and formatters.
package models

import (
	"github.com/woozymasta/gsquery/internal/query"
	"github.com/woozymasta/gsquery/internal/result"
)

// Report is the outcome of one server, ready for output.
type Report struct {
	// Address is ip:port of the game port. Formatters key servers by it.
	Address string `json:"-"`

	// Driver is the canonical driver name used for the query.
	Driver string `json:"driver"`

	// Host is the host as given by the user, before resolution.
	Host string `json:"host"`

	// Country is the ISO country code of the server IP, empty without a GeoIP database.
	Country string `json:"country,omitempty"`

	// Error describes why the query failed. Result holds the defaults in that case.
	Error string `json:"error,omitempty"`

	// Result is the decoded, filtered server state.
	Result result.Snapshot `json:"-"`

	// DurationMS is the wall time of the query in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// FromOutcome converts an orchestrator outcome.
func FromOutcome(out query.Outcome) Report {
	r := Report{
		Address:    out.Server.Address(),
		Driver:     out.Server.Driver().Name(),
		Host:       out.Server.Host(),
		Result:     out.Result,
		DurationMS: out.Duration.Milliseconds(),
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}

	return r
}

// FromOutcomes converts outcomes, keeping their order.
func FromOutcomes(outs []query.Outcome) []Report {
	reports := make([]Report, len(outs))
	for i, o := range outs {
		reports[i] = FromOutcome(o)
	}

	return reports
}

// Online reports whether the server answered and was decoded.
func (r Report) Online() bool {
	return r.Error == "" && r.Result.Bool(result.Active)
}
