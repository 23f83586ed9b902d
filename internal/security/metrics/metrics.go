package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsRecorded  *prometheus.CounterVec
	FailedLogins    prometheus.Counter
	AutoBlocks      prometheus.Counter
	AlertsRaised    *prometheus.CounterVec
	ExpiredEntries  prometheus.Counter
	WindowDegraded  prometheus.Gauge
	ActiveDenyCount prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "amlguard_security_events_recorded_total",
			Help: "Security events recorded by type",
		}, []string{"type"}),
		FailedLogins: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_security_failed_logins_total",
			Help: "Total number of failed logins counted towards escalation",
		}),
		AutoBlocks: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_security_auto_blocks_total",
			Help: "Addresses blocked automatically after repeated failed logins",
		}),
		AlertsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Name: "amlguard_security_alerts_raised_total",
			Help: "Security alerts raised by severity",
		}, []string{"severity"}),
		ExpiredEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_security_ip_entries_expired_total",
			Help: "IP list entries deactivated by the expiry sweep",
		}),
		WindowDegraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "amlguard_security_failure_window_degraded",
			Help: "1 while failed-login counting runs on the in-memory fallback",
		}),
		ActiveDenyCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "amlguard_security_active_denied_ips",
			Help: "Current number of active deny-list entries",
		}),
	}
}

func (m *Metrics) IncrementEvent(eventType string) {
	m.EventsRecorded.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncrementFailedLogins() {
	m.FailedLogins.Inc()
}

func (m *Metrics) IncrementAutoBlocks() {
	m.AutoBlocks.Inc()
}

func (m *Metrics) IncrementAlerts(severity string) {
	m.AlertsRaised.WithLabelValues(severity).Inc()
}

func (m *Metrics) AddExpired(n int) {
	m.ExpiredEntries.Add(float64(n))
}

func (m *Metrics) SetDegraded(degraded bool) {
	if degraded {
		m.WindowDegraded.Set(1)
		return
	}
	m.WindowDegraded.Set(0)
}

func (m *Metrics) SetActiveDenied(count int) {
	m.ActiveDenyCount.Set(float64(count))
}
