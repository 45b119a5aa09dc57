package dataprocessing

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for cleaning runs. A nil
// *Metrics is valid and records nothing, which keeps the stages
// usable from tests and the CLI without a registry.
type Metrics struct {
	Runs         prometheus.Counter
	RunDuration  prometheus.Histogram
	RowsLoaded   prometheus.Gauge
	CoercedCells *prometheus.CounterVec
	ClippedCells *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "engineatlas",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed cleaning runs.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "engineatlas",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full cleaning run.",
			Buckets:   prometheus.DefBuckets,
		}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "engineatlas",
			Subsystem: "pipeline",
			Name:      "rows_loaded",
			Help:      "Rows in the most recently cleaned dataset.",
		}),
		CoercedCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engineatlas",
			Subsystem: "pipeline",
			Name:      "coerced_cells_total",
			Help:      "Cells converted to numbers, by column and outcome.",
		}, []string{"column", "outcome"}),
		ClippedCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engineatlas",
			Subsystem: "pipeline",
			Name:      "clipped_cells_total",
			Help:      "Cells clamped to their physical bounds, by column.",
		}, []string{"column"}),
	}
	reg.MustRegister(m.Runs, m.RunDuration, m.RowsLoaded, m.CoercedCells, m.ClippedCells)
	return m
}

func (m *Metrics) observeRun(seconds float64, rows int) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.RunDuration.Observe(seconds)
	m.RowsLoaded.Set(float64(rows))
}

func (m *Metrics) countCoerced(column, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CoercedCells.WithLabelValues(column, outcome).Add(float64(n))
}

func (m *Metrics) countClipped(column string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ClippedCells.WithLabelValues(column).Add(float64(n))
}
