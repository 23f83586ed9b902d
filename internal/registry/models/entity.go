package models

import (
	"slices"
	"strings"
	"time"

	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
)

// EntityType classifies a supervised institution.
type EntityType string

const (
	TypeBank             EntityType = "Bank"
	TypeMicrofinance     EntityType = "Microfinance"
	TypeMoneyTransfer    EntityType = "Money Transfer"
	TypeForexBureau      EntityType = "Forex Bureau"
	TypeInsurance        EntityType = "Insurance"
	TypeSecuritiesDealer EntityType = "Securities Dealer"
	TypeOther            EntityType = "Other"
)

// EntityTypes lists every known type in display order.
var EntityTypes = []EntityType{
	TypeBank, TypeMicrofinance, TypeMoneyTransfer, TypeForexBureau,
	TypeInsurance, TypeSecuritiesDealer, TypeOther,
}

// Status is the license status of an entity.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusSuspended Status = "Suspended"
	StatusExpired   Status = "Expired"
	StatusRevoked   Status = "Revoked"
)

var Statuses = []Status{StatusPending, StatusActive, StatusSuspended, StatusExpired, StatusRevoked}

// RiskLevel is the supervisory risk rating. The empty value means unrated.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
	RiskUnrated  RiskLevel = "Unrated"
)

var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// OrUnrated maps unset and unknown ratings to RiskUnrated.
func (r RiskLevel) OrUnrated() RiskLevel {
	if slices.Contains(RiskLevels, r) {
		return r
	}
	return RiskUnrated
}

// ParseEntityType, ParseStatus and ParseRiskLevel match case-insensitively.
func ParseEntityType(s string) (EntityType, bool) { return parseEnum(EntityTypes, s) }
func ParseStatus(s string) (Status, bool)         { return parseEnum(Statuses, s) }

func ParseRiskLevel(s string) (RiskLevel, bool) {
	if strings.EqualFold(strings.TrimSpace(s), string(RiskUnrated)) {
		return RiskUnrated, true
	}
	return parseEnum(RiskLevels, s)
}

func parseEnum[E ~string](known []E, s string) (E, bool) {
	s = strings.TrimSpace(s)
	for _, k := range known {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

type Contact struct {
	Name  string `json:"name" validate:"max=200"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"max=40"`
}

type License struct {
	Number    string     `json:"number" validate:"notblank,max=64"`
	Category  string     `json:"category" validate:"max=64"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Note struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryAction names the mutation a history event records.
type HistoryAction string

const (
	ActionRegistered HistoryAction = "registered"
	ActionUpdated    HistoryAction = "updated"
	ActionApproved   HistoryAction = "approved"
	ActionSuspended  HistoryAction = "suspended"
	ActionReinstated HistoryAction = "reinstated"
	ActionExpired    HistoryAction = "expired"
	ActionRenewed    HistoryAction = "renewed"
	ActionRevoked    HistoryAction = "revoked"
	ActionNoteAdded  HistoryAction = "note_added"
)

type HistoryEvent struct {
	ID         string        `json:"id"`
	Action     HistoryAction `json:"action"`
	Actor      string        `json:"actor"`
	ActorID    string        `json:"actor_id"`
	FromStatus Status        `json:"from_status,omitempty"`
	ToStatus   Status        `json:"to_status,omitempty"`
	Details    string        `json:"details,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Entity is a supervised institution in the registry.
//
// Invariants:
//   - RegistrationNumber is immutable after registration
//   - ComplianceScore, when set, is within 0..100
//   - License expiry, when both dates are set, is after issue
//   - History is append-only and stored oldest first
//   - Revoked is terminal
type Entity struct {
	ID                 string         `json:"id"`
	RegistrationNumber string         `json:"registration_number"`
	Name               string         `json:"name"`
	Type               EntityType     `json:"type"`
	Status             Status         `json:"status"`
	RiskLevel          RiskLevel      `json:"risk_level,omitempty"`
	ComplianceScore    *int           `json:"compliance_score,omitempty"`
	Contact            Contact        `json:"contact"`
	Address            string         `json:"address"`
	License            License        `json:"license"`
	LastInspectionAt   *time.Time     `json:"last_inspection_at,omitempty"`
	Notes              []Note         `json:"notes"`
	History            []HistoryEvent `json:"history"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	UpdatedBy          string         `json:"updated_by"`
}

// NewEntity builds a pending entity and records its registration.
func NewEntity(id string, req RegisterEntityRequest, actor domain.Actor, now time.Time, historyID string) (*Entity, error) {
	e := &Entity{
		ID:                 id,
		RegistrationNumber: req.RegistrationNumber,
		Name:               req.Name,
		Type:               req.Type,
		Status:             StatusPending,
		RiskLevel:          req.RiskLevel,
		ComplianceScore:    cloneInt(req.ComplianceScore),
		Contact:            req.Contact,
		Address:            req.Address,
		License:            req.License.clone(),
		LastInspectionAt:   cloneTime(req.LastInspectionAt),
		Notes:              []Note{},
		History:            []HistoryEvent{},
		CreatedAt:          now,
	}
	if err := e.CheckInvariants(); err != nil {
		return nil, err
	}
	e.Record(HistoryEvent{ID: historyID, Action: ActionRegistered, ToStatus: StatusPending}, actor, now)
	return e, nil
}

// CheckInvariants validates the fields every persisted entity must satisfy.
func (e *Entity) CheckInvariants() error {
	if strings.TrimSpace(e.Name) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "entity name cannot be empty")
	}
	if strings.TrimSpace(e.RegistrationNumber) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "registration number cannot be empty")
	}
	if !slices.Contains(EntityTypes, e.Type) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown entity type %q", e.Type)
	}
	if e.RiskLevel != "" && !slices.Contains(RiskLevels, e.RiskLevel) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown risk level %q", e.RiskLevel)
	}
	if e.ComplianceScore != nil && (*e.ComplianceScore < 0 || *e.ComplianceScore > 100) {
		return dErrors.New(dErrors.CodeInvariantViolation, "compliance score must be between 0 and 100")
	}
	if strings.TrimSpace(e.License.Number) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "license number cannot be empty")
	}
	if l := e.License; l.IssuedAt != nil && l.ExpiresAt != nil && !l.ExpiresAt.After(*l.IssuedAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "license expiry must be after issue date")
	}
	return nil
}

// Record stamps the entity and appends exactly one history event. Every
// mutation goes through here.
func (e *Entity) Record(ev HistoryEvent, actor domain.Actor, now time.Time) {
	ev.Actor = actor.Label()
	ev.ActorID = actor.ID
	ev.OccurredAt = now
	e.History = append(e.History, ev)
	e.UpdatedAt = now
	e.UpdatedBy = actor.Label()
}

// HistoryNewestFirst returns a copy of the history in display order.
func (e *Entity) HistoryNewestFirst() []HistoryEvent {
	out := slices.Clone(e.History)
	slices.Reverse(out)
	if out == nil {
		out = []HistoryEvent{}
	}
	return out
}

// Score exposes the optional compliance score for aggregation.
func (e *Entity) Score() (int, bool) {
	if e.ComplianceScore == nil {
		return 0, false
	}
	return *e.ComplianceScore, true
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// reach persisted state.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.ComplianceScore = cloneInt(e.ComplianceScore)
	c.License = e.License.clone()
	c.LastInspectionAt = cloneTime(e.LastInspectionAt)
	c.Notes = slices.Clone(e.Notes)
	c.History = slices.Clone(e.History)
	if c.Notes == nil {
		c.Notes = []Note{}
	}
	if c.History == nil {
		c.History = []HistoryEvent{}
	}
	return &c
}

func (l License) clone() License {
	l.IssuedAt = cloneTime(l.IssuedAt)
	l.ExpiresAt = cloneTime(l.ExpiresAt)
	return l
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
