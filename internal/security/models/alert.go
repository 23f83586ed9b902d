package models

import (
	"slices"
	"strings"
	"time"

	"amlguard/pkg/domain"
	"amlguard/pkg/platform/validation"
	"amlguard/pkg/query"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

var AlertSeverities = []AlertSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func ParseAlertSeverity(s string) (AlertSeverity, bool) {
	sev := AlertSeverity(strings.ToLower(strings.TrimSpace(s)))
	return sev, slices.Contains(AlertSeverities, sev)
}

const AlertTypeBruteForce = "brute_force"

// Alert is a security alert. Unresolved -> resolved is the only transition.
type Alert struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Severity    AlertSeverity `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	SourceIP    string        `json:"source_ip,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Resolved    bool          `json:"resolved"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy  string        `json:"resolved_by,omitempty"`
	Resolution  string        `json:"resolution,omitempty"`
}

// Resolve marks the alert resolved. Resolving a resolved alert changes
// nothing and reports false.
func (a *Alert) Resolve(resolution string, actor domain.Actor, now time.Time) bool {
	if a.Resolved {
		return false
	}
	a.Resolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = actor.Label()
	a.Resolution = resolution
	return true
}

func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	c := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

type RaiseAlertRequest struct {
	Type        string        `json:"type" validate:"notblank,max=64"`
	Severity    AlertSeverity `json:"severity" validate:"required,oneof=low medium high critical"`
	Title       string        `json:"title" validate:"notblank,max=200"`
	Description string        `json:"description" validate:"max=2000"`
	SourceIP    string        `json:"source_ip" validate:"omitempty,ip"`
}

func (r *RaiseAlertRequest) Validate() error {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Severity = AlertSeverity(strings.ToLower(strings.TrimSpace(string(r.Severity))))
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.SourceIP = CanonicalSource(r.SourceIP)
	return validation.Struct(r)
}

type ResolveAlertRequest struct {
	Resolution string `json:"resolution" validate:"max=1000"`
}

func (r *ResolveAlertRequest) Validate() error {
	r.Resolution = strings.TrimSpace(r.Resolution)
	return validation.Struct(r)
}

// AlertFilter selects alerts for listing. The date window is inclusive of
// From and exclusive of To.
type AlertFilter struct {
	Search     string
	Severities []AlertSeverity
	Resolved   *bool
	From       *time.Time
	To         *time.Time
}

func (f AlertFilter) Predicates() []query.Predicate[*Alert] {
	return []query.Predicate[*Alert]{
		query.Text(f.Search, func(a *Alert) []string { return []string{a.Title, a.Description, a.SourceIP, a.Type} }),
		query.In(f.Severities, func(a *Alert) AlertSeverity { return a.Severity }),
		query.Equal(f.Resolved, func(a *Alert) bool { return a.Resolved }),
		query.Between(f.From, f.To, func(a *Alert) time.Time { return a.CreatedAt }),
	}
}
