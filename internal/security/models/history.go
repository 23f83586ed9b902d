package models

import (
	"time"

	"amlguard/pkg/domain"
)

// HistoryEvent is one append-only change record on a firewall rule.
type HistoryEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	ActorID    string    `json:"actor_id"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newHistoryEvent(id, action, details string, actor domain.Actor, now time.Time) HistoryEvent {
	return HistoryEvent{
		ID:         id,
		Action:     action,
		Actor:      actor.Label(),
		ActorID:    actor.ID,
		Details:    details,
		OccurredAt: now,
	}
}
