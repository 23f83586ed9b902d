package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit trail.
type Metrics struct {
	EntriesAppended *prometheus.CounterVec
	AppendFailures  prometheus.Counter
	QueryDuration   prometheus.Histogram
}

// New creates a new Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntriesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "amlguard_audit_entries_appended_total",
			Help: "Audit trail entries appended by category",
		}, []string{"category"}),
		AppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_audit_append_failures_total",
			Help: "Audit trail appends rejected by the store",
		}),
		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "amlguard_audit_query_duration_seconds",
			Help:    "Duration of audit trail queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementAppended(category string) {
	m.EntriesAppended.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementAppendFailures() {
	m.AppendFailures.Inc()
}

func (m *Metrics) ObserveQuery(start time.Time) {
	m.QueryDuration.Observe(time.Since(start).Seconds())
}
