package models

import (
	"slices"
	"time"

	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
)

// Transition is one edge set of the license state machine.
type Transition struct {
	Action HistoryAction
	verb   string
	From   []Status
	To     Status
}

// Pending -> Active -> {Suspended, Expired} -> Revoked, with reinstatement
// and renewal back to Active. Revoked has no outgoing edges.
var (
	Approve   = Transition{Action: ActionApproved, verb: "approve", From: []Status{StatusPending}, To: StatusActive}
	Suspend   = Transition{Action: ActionSuspended, verb: "suspend", From: []Status{StatusActive}, To: StatusSuspended}
	Reinstate = Transition{Action: ActionReinstated, verb: "reinstate", From: []Status{StatusSuspended}, To: StatusActive}
	Expire    = Transition{Action: ActionExpired, verb: "expire", From: []Status{StatusActive}, To: StatusExpired}
	Renew     = Transition{Action: ActionRenewed, verb: "renew", From: []Status{StatusExpired}, To: StatusActive}
	Revoke    = Transition{Action: ActionRevoked, verb: "revoke", From: []Status{StatusActive, StatusSuspended, StatusExpired}, To: StatusRevoked}
)

// CanApply checks the transition against the current status.
// Use with ApplyTransition in Execute callbacks.
func (e *Entity) CanApply(t Transition) error {
	if !slices.Contains(t.From, e.Status) {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot %s an entity in status %s", t.verb, e.Status)
	}
	return nil
}

// ApplyTransition moves the entity to t.To and records the change.
// Call CanApply first.
func (e *Entity) ApplyTransition(t Transition, details, historyID string, actor domain.Actor, now time.Time) {
	from := e.Status
	e.Status = t.To
	e.Record(HistoryEvent{
		ID:         historyID,
		Action:     t.Action,
		FromStatus: from,
		ToStatus:   t.To,
		Details:    details,
	}, actor, now)
}

// CanModify rejects field updates on revoked entities.
func (e *Entity) CanModify() error {
	if e.Status == StatusRevoked {
		return dErrors.New(dErrors.CodeInvalidTransition, "revoked entities cannot be modified")
	}
	return nil
}

// LicenseLapsed reports whether an active license has passed its expiry date.
func (e *Entity) LicenseLapsed(now time.Time) bool {
	return e.Status == StatusActive && e.License.ExpiresAt != nil && !e.License.ExpiresAt.After(now)
}
