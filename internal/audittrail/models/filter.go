package models

import (
	"strings"
	"time"

	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
)

// Filter narrows the audit trail. Empty fields impose no constraint.
type Filter struct {
	Search     string
	Categories []audit.EventCategory
	Severities []audit.Severity
	Outcomes   []audit.Outcome
	Actors     []string
	From       *time.Time
	To         *time.Time
}

// Predicates returns the filter as independent predicates. Search covers
// actor, action, resource and IP as well as the details text.
func (f Filter) Predicates() []query.Predicate[*Entry] {
	var actors []string
	for _, a := range f.Actors {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			actors = append(actors, a)
		}
	}
	return []query.Predicate[*Entry]{
		query.Text(f.Search, searchable),
		query.In(f.Categories, func(e *Entry) audit.EventCategory { return e.Category }),
		query.In(f.Severities, func(e *Entry) audit.Severity { return e.Severity }),
		query.In(f.Outcomes, func(e *Entry) audit.Outcome { return e.Outcome }),
		query.In(actors, func(e *Entry) string { return strings.ToLower(e.Actor) }),
		query.Between(f.From, f.To, func(e *Entry) time.Time { return e.Timestamp }),
	}
}

func searchable(e *Entry) []string {
	return []string{e.Actor, e.ActorID, e.Action, e.ResourceType, e.ResourceID, e.IP, e.Details}
}
