package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters and histograms for an export run.
// A batch job has nothing to scrape, so runs push to a Pushgateway when one
// is configured.
type Metrics struct {
	RowsExtracted *prometheus.CounterVec // labels: layer={events,points,bands}
	RowsExported  *prometheus.CounterVec // labels: artifact
	JoinDrops     *prometheus.CounterVec // labels: join, side={left,right}
	LookupMisses  prometheus.Counter
	RunDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates run metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goose_etl",
			Name:      "rows_extracted_total",
			Help:      "Rows returned by the feature service per layer.",
		}, []string{"layer"}),
		RowsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goose_etl",
			Name:      "rows_exported_total",
			Help:      "Rows written per output artifact.",
		}, []string{"artifact"}),
		JoinDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goose_etl",
			Name:      "join_drops_total",
			Help:      "Rows dropped by inner joins, by join and side.",
		}, []string{"join", "side"}),
		LookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goose_etl",
			Name:      "taxonomy_lookup_misses_total",
			Help:      "Long-form flock rows whose short name had no taxonomy entry.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goose_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete export run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RowsExtracted,
		m.RowsExported,
		m.JoinDrops,
		m.LookupMisses,
		m.RunDuration,
	)

	return m
}

// Push delivers the run's metrics to a Pushgateway.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.registry).Push()
}
