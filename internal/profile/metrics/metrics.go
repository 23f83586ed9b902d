package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the profile module.
type Metrics struct {
	ProfilesCreated prometheus.Counter
	Updates         *prometheus.CounterVec
	PasswordChanges *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProfilesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "amlguard_profile_created_total",
			Help: "Profiles created for first-seen actors",
		}),
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "amlguard_profile_updates_total",
			Help: "Profile updates by section",
		}, []string{"section"}),
		PasswordChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "amlguard_profile_password_changes_total",
			Help: "Password change attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.ProfilesCreated.Inc()
}

func (m *Metrics) IncrementUpdate(section string) {
	m.Updates.WithLabelValues(section).Inc()
}

func (m *Metrics) IncrementPasswordChange(outcome string) {
	m.PasswordChanges.WithLabelValues(outcome).Inc()
}
