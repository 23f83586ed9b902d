package models

import (
	"slices"
	"strings"
	"time"

	"amlguard/pkg/platform/validation"
	"amlguard/pkg/query"
)

// EventType classifies an observed security event.
type EventType string

const (
	EventLoginFailed    EventType = "login_failed"
	EventLoginSucceeded EventType = "login_succeeded"
	EventAccessDenied   EventType = "access_denied"
	EventSuspicious     EventType = "suspicious_activity"
)

var EventTypes = []EventType{EventLoginFailed, EventLoginSucceeded, EventAccessDenied, EventSuspicious}

func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	return t, slices.Contains(EventTypes, t)
}

type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	IP         string    `json:"ip"`
	Username   string    `json:"username,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type RecordEventRequest struct {
	Type      EventType `json:"type" validate:"required,oneof=login_failed login_succeeded access_denied suspicious_activity"`
	IP        string    `json:"ip" validate:"required,ip"`
	Username  string    `json:"username" validate:"max=200"`
	UserAgent string    `json:"user_agent" validate:"max=500"`
}

func (r *RecordEventRequest) Validate() error {
	r.Type = EventType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	r.IP = CanonicalSource(r.IP)
	r.Username = strings.TrimSpace(r.Username)
	return validation.Struct(r)
}

// EventOutcome is the result of recording an event. Escalated is set when
// the event triggered an automatic block.
type EventOutcome struct {
	Event     *Event   `json:"event"`
	Failures  int      `json:"failures_in_window,omitempty"`
	Escalated bool     `json:"escalated"`
	Block     *IPEntry `json:"block,omitempty"`
	Alert     *Alert   `json:"alert,omitempty"`
}

type EventFilter struct {
	Types []EventType
	IP    string
	From  *time.Time
	To    *time.Time
}

func (f EventFilter) Predicates() []query.Predicate[*Event] {
	var ip query.Predicate[*Event]
	if want := CanonicalSource(f.IP); want != "" {
		ip = func(e *Event) bool { return e.IP == want }
	}
	return []query.Predicate[*Event]{
		query.In(f.Types, func(e *Event) EventType { return e.Type }),
		ip,
		query.Between(f.From, f.To, func(e *Event) time.Time { return e.OccurredAt }),
	}
}
