package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	EntitiesRegistered prometheus.Counter
	Transitions        *prometheus.CounterVec
	MutationDuration   prometheus.Histogram
	ListDuration       prometheus.Histogram
	StatsCacheHits     prometheus.Counter
	StatsCacheMisses   prometheus.Counter
}

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// New creates a new Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntitiesRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_registry_entities_registered_total",
			Help: "Total number of entities registered",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "amlguard_registry_transitions_total",
			Help: "License status transitions by target status",
		}, []string{"to_status"}),
		MutationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "amlguard_registry_mutation_duration_seconds",
			Help:    "Duration of registry mutations",
			Buckets: durationBuckets,
		}),
		ListDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "amlguard_registry_list_duration_seconds",
			Help:    "Duration of filtered registry listings",
			Buckets: durationBuckets,
		}),
		StatsCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_registry_stats_cache_hits_total",
			Help: "Registry stats served from cache",
		}),
		StatsCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_registry_stats_cache_misses_total",
			Help: "Registry stats recomputed",
		}),
	}
}

func (m *Metrics) IncrementRegistered() {
	m.EntitiesRegistered.Inc()
}

func (m *Metrics) IncrementTransition(toStatus string) {
	m.Transitions.WithLabelValues(toStatus).Inc()
}

// ObserveMutation records the duration of a mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(start time.Time) {
	m.MutationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) StatsCache(hit bool) {
	if hit {
		m.StatsCacheHits.Inc()
		return
	}
	m.StatsCacheMisses.Inc()
}
