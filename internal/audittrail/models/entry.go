// Package models defines the audit-trail record and its read-side views.
package models

import (
	"time"

	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/device"
)

// Entry is one immutable line of the audit trail.
type Entry struct {
	ID           string              `json:"id"`
	Timestamp    time.Time           `json:"timestamp"`
	Action       string              `json:"action"`
	Category     audit.EventCategory `json:"category"`
	Severity     audit.Severity      `json:"severity"`
	Outcome      audit.Outcome       `json:"outcome"`
	ActorID      string              `json:"actor_id,omitempty"`
	Actor        string              `json:"actor"`
	ActorRole    string              `json:"actor_role,omitempty"`
	ResourceType string              `json:"resource_type,omitempty"`
	ResourceID   string              `json:"resource_id,omitempty"`
	Details      string              `json:"details,omitempty"`
	IP           string              `json:"ip,omitempty"`
	UserAgent    string              `json:"user_agent,omitempty"`
	Device       string              `json:"device,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
}

// FromEvent converts a published audit event into a trail entry.
func FromEvent(id string, event audit.Event) *Entry {
	event = event.Normalize()
	actor := event.ActorName
	if actor == "" {
		actor = event.ActorID
	}
	return &Entry{
		ID:           id,
		Timestamp:    event.Timestamp.UTC(),
		Action:       event.Action,
		Category:     event.Category,
		Severity:     event.Severity,
		Outcome:      event.Outcome,
		ActorID:      event.ActorID,
		Actor:        actor,
		ActorRole:    event.ActorRole,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      event.Details,
		IP:           event.IP,
		UserAgent:    event.UserAgent,
		Device:       device.Describe(event.UserAgent),
		RequestID:    event.RequestID,
	}
}

// Failed reports whether the audited action was rejected.
func (e *Entry) Failed() bool {
	return e.Outcome == audit.OutcomeFailure
}
