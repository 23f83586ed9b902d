package models

import (
	"time"

	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
)

// Stats aggregates a filtered slice of the audit trail.
type Stats struct {
	Total           int                         `json:"total"`
	ByCategory      map[audit.EventCategory]int `json:"by_category"`
	BySeverity      map[audit.Severity]int      `json:"by_severity"`
	ByOutcome       map[audit.Outcome]int       `json:"by_outcome"`
	Last24h         int                         `json:"last_24h"`
	FailuresLast24h int                         `json:"failures_last_24h"`
	UniqueActors    int                         `json:"unique_actors"`
	ComputedAt      time.Time                   `json:"computed_at"`
}

const (
	statsWindow   = 24 * time.Hour
	otherCategory = audit.EventCategory("other")
	otherSeverity = audit.Severity("other")
	otherOutcome  = audit.Outcome("other")
)

var outcomes = []audit.Outcome{audit.OutcomeSuccess, audit.OutcomeFailure}

// ComputeStats aggregates entries. The 24h counters cover [now-24h, now).
func ComputeStats(entries []*Entry, now time.Time) Stats {
	stamped := func(e *Entry) time.Time { return e.Timestamp }
	failures := query.Filter(entries, (*Entry).Failed)
	actors := make(map[string]struct{})
	for _, e := range entries {
		if e.Actor != "" {
			actors[e.Actor] = struct{}{}
		}
	}
	return Stats{
		Total:           len(entries),
		ByCategory:      query.Breakdown(entries, audit.Categories, func(e *Entry) audit.EventCategory { return e.Category }, otherCategory),
		BySeverity:      query.Breakdown(entries, audit.Severities, func(e *Entry) audit.Severity { return e.Severity }, otherSeverity),
		ByOutcome:       query.Breakdown(entries, outcomes, func(e *Entry) audit.Outcome { return e.Outcome }, otherOutcome),
		Last24h:         query.CountInWindow(entries, stamped, now, statsWindow),
		FailuresLast24h: query.CountInWindow(failures, stamped, now, statsWindow),
		UniqueActors:    len(actors),
		ComputedAt:      now,
	}
}
