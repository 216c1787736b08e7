// Package metrics holds the Prometheus collectors for the import pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	imports  *prometheus.CounterVec
	rows     *prometheus.CounterVec
	chunkDur prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_imports_total",
			Help: "Ledger imports by outcome.",
		}, []string{"outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_import_rows_total",
			Help: "Ledger rows seen by the import pipeline, by result.",
		}, []string{"result"}),
		chunkDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_upsert_chunk_duration_seconds",
			Help:    "Duration of one batched ledger upsert.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.imports, m.rows, m.chunkDur)

	return m
}

// ImportFinished counts one import. outcome is "ok" or the failing stage.
func (m *Metrics) ImportFinished(outcome string) {
	if m == nil {
		return
	}

	m.imports.WithLabelValues(outcome).Inc()
}

// Rows adds n rows under result, e.g. "valid", "upserted" or a rejection
// reason.
func (m *Metrics) Rows(result string, n int) {
	if m == nil || n <= 0 {
		return
	}

	m.rows.WithLabelValues(result).Add(float64(n))
}

// ChunkUpserted observes the duration of one upsert chunk.
func (m *Metrics) ChunkUpserted(d time.Duration) {
	if m == nil {
		return
	}

	m.chunkDur.Observe(d.Seconds())
}
