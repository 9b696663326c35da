package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ingestion counters. A nil *Metrics records nothing.
type Metrics struct {
	upserted      *prometheus.CounterVec
	discarded     *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	writeFailures *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
}

// NewMetrics registers the ingestion metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		upserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_records_upserted_total",
			Help: "Records written to the store, by family.",
		}, []string{"family"}),
		discarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_records_discarded_total",
			Help: "Feed entries dropped by an adapter, by family.",
		}, []string{"family"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_feed_fetch_failures_total",
			Help: "Feeds that could not be fetched, by family and source.",
		}, []string{"family", "source"}),
		writeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_store_write_failures_total",
			Help: "Record upserts that failed, by family.",
		}, []string{"family"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulse_family_run_duration_seconds",
			Help:    "Wall time of one family ingestion run.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"family"}),
	}
}

func (m *Metrics) recordUpserted(family string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.upserted.WithLabelValues(family).Add(float64(n))
}

func (m *Metrics) recordDiscarded(family string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(family).Inc()
}

func (m *Metrics) recordFetchFailure(family, source string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(family, source).Inc()
}

func (m *Metrics) recordWriteFailure(family string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(family).Inc()
}

func (m *Metrics) observeRun(family string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(family).Observe(d.Seconds())
}
