package models

import (
	"time"

	"amlguard/pkg/query"
)

// Stats summarises the security console.
type Stats struct {
	TotalRules          int                   `json:"total_rules"`
	EnabledRules        int                   `json:"enabled_rules"`
	RulesByAction       map[RuleAction]int    `json:"rules_by_action"`
	ActiveAllowed       int                   `json:"active_allowed"`
	ActiveDenied        int                   `json:"active_denied"`
	AutoBlocked         int                   `json:"auto_blocked"`
	AlertsBySeverity    map[AlertSeverity]int `json:"alerts_by_severity"`
	UnresolvedAlerts    int                   `json:"unresolved_alerts"`
	EventsLast24h       int                   `json:"events_last_24h"`
	FailedLoginsLast24h int                   `json:"failed_logins_last_24h"`
	ComputedAt          time.Time             `json:"computed_at"`
}

const (
	statsWindow   = 24 * time.Hour
	otherAction   = RuleAction("other")
	otherSeverity = AlertSeverity("other")
)

func ComputeStats(rules []*Rule, entries []*IPEntry, alerts []*Alert, events []*Event, now time.Time) Stats {
	active := func(list ListKind) query.Predicate[*IPEntry] {
		return func(e *IPEntry) bool { return e.List == list && e.ActiveAt(now) }
	}
	failed := query.Filter(events, func(e *Event) bool { return e.Type == EventLoginFailed })
	occurred := func(e *Event) time.Time { return e.OccurredAt }

	return Stats{
		TotalRules:    len(rules),
		EnabledRules:  query.Count(rules, func(r *Rule) bool { return r.Enabled }),
		RulesByAction: query.Breakdown(rules, RuleActions, func(r *Rule) RuleAction { return r.Action }, otherAction),
		ActiveAllowed: query.Count(entries, active(ListAllow)),
		ActiveDenied:  query.Count(entries, active(ListDeny)),
		AutoBlocked: query.Count(entries, query.All(active(ListDeny), func(e *IPEntry) bool {
			return e.Automatic
		})),
		AlertsBySeverity:    query.Breakdown(alerts, AlertSeverities, func(a *Alert) AlertSeverity { return a.Severity }, otherSeverity),
		UnresolvedAlerts:    query.Count(alerts, func(a *Alert) bool { return !a.Resolved }),
		EventsLast24h:       query.CountInWindow(events, occurred, now, statsWindow),
		FailedLoginsLast24h: query.CountInWindow(failed, occurred, now, statsWindow),
		ComputedAt:          now,
	}
}
