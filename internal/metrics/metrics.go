// Package metrics collects per-run query statistics and writes them in the
// Prometheus text format for the node_exporter textfile collector.
package metrics

import (
	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/woozymasta/gsquery/internal/models"
	"github.com/woozymasta/gsquery/internal/result"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	players  *prometheus.GaugeVec
}

// New registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gsquery",
			Name:      "queries_total",
			Help:      "Game server queries by driver and outcome.",
		}, []string{"driver", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gsquery",
			Name:      "query_duration_seconds",
			Help:      "Wall time of a single server query.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2, 3, 5},
		}, []string{"driver"}),
		players: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gsquery",
			Name:      "online_players",
			Help:      "Players reported online by a server.",
		}, []string{"driver", "address"}),
	}

	m.registry.MustRegister(m.queries, m.duration, m.players)

	return m
}

// Observe records the reports of a run. Offline servers do not get a players gauge.
func (m *Metrics) Observe(reports []models.Report) {
	for _, r := range reports {
		outcome := OutcomeOK
		if r.Error != "" {
			outcome = OutcomeError
		}

		m.queries.WithLabelValues(r.Driver, outcome).Inc()
		m.duration.WithLabelValues(r.Driver).Observe(float64(r.DurationMS) / 1000)

		if r.Online() {
			m.players.WithLabelValues(r.Driver, r.Address).Set(float64(r.Result.Int(result.OnlinePlayers)))
		}
	}
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all collected metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}

	return nil
}
