package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/validation"
	"amlguard/pkg/query"
)

type RuleAction string

const (
	ActionAllow RuleAction = "allow"
	ActionDeny  RuleAction = "deny"
)

var RuleActions = []RuleAction{ActionAllow, ActionDeny}

type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
	ProtocolAny Protocol = "any"
)

var Protocols = []Protocol{ProtocolTCP, ProtocolUDP, ProtocolAny}

const (
	MinPriority = 1
	MaxPriority = 10000
)

// Rule is a firewall rule. Port 0 matches every port.
//
// Invariants:
//   - Priority is within MinPriority..MaxPriority
//   - Source is a single IP or a CIDR prefix
//   - no two enabled rules share a priority (enforced by the store)
type Rule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Action      RuleAction     `json:"action"`
	Source      string         `json:"source"`
	Port        int            `json:"port"`
	Protocol    Protocol       `json:"protocol"`
	Priority    int            `json:"priority"`
	Enabled     bool           `json:"enabled"`
	Description string         `json:"description,omitempty"`
	History     []HistoryEvent `json:"history"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	UpdatedBy   string         `json:"updated_by"`
}

type CreateRuleRequest struct {
	Name        string     `json:"name" validate:"notblank,max=120"`
	Action      RuleAction `json:"action" validate:"required,oneof=allow deny"`
	Source      string     `json:"source" validate:"required,ip_or_cidr"`
	Port        int        `json:"port" validate:"gte=0,lte=65535"`
	Protocol    Protocol   `json:"protocol" validate:"omitempty,oneof=tcp udp any"`
	Priority    int        `json:"priority" validate:"gte=1,lte=10000"`
	Enabled     *bool      `json:"enabled,omitempty"`
	Description string     `json:"description" validate:"max=500"`
}

func (r *CreateRuleRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Action = RuleAction(strings.ToLower(strings.TrimSpace(string(r.Action))))
	r.Protocol = Protocol(strings.ToLower(strings.TrimSpace(string(r.Protocol))))
	if r.Protocol == "" {
		r.Protocol = ProtocolAny
	}
	r.Source = CanonicalSource(r.Source)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateRuleRequest) Validate() error {
	r.Normalize()
	return validation.Struct(r)
}

// UpdateRuleRequest patches a rule. Enabled is changed through toggling only.
type UpdateRuleRequest struct {
	Name        *string     `json:"name,omitempty" validate:"omitempty,notblank,max=120"`
	Action      *RuleAction `json:"action,omitempty" validate:"omitempty,oneof=allow deny"`
	Source      *string     `json:"source,omitempty" validate:"omitempty,ip_or_cidr"`
	Port        *int        `json:"port,omitempty" validate:"omitempty,gte=0,lte=65535"`
	Protocol    *Protocol   `json:"protocol,omitempty" validate:"omitempty,oneof=tcp udp any"`
	Priority    *int        `json:"priority,omitempty" validate:"omitempty,gte=1,lte=10000"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=500"`
}

func (r *UpdateRuleRequest) Validate() error {
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
	}
	if r.Action != nil {
		*r.Action = RuleAction(strings.ToLower(strings.TrimSpace(string(*r.Action))))
	}
	if r.Protocol != nil {
		*r.Protocol = Protocol(strings.ToLower(strings.TrimSpace(string(*r.Protocol))))
	}
	if r.Source != nil {
		*r.Source = CanonicalSource(*r.Source)
	}
	if r.Name == nil && r.Action == nil && r.Source == nil && r.Port == nil &&
		r.Protocol == nil && r.Priority == nil && r.Description == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	return validation.Struct(r)
}

// NewRule builds a rule from a validated request. Rules are enabled unless
// the request says otherwise.
func NewRule(id string, req CreateRuleRequest, actor domain.Actor, now time.Time, historyID string) (*Rule, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	r := &Rule{
		ID:          id,
		Name:        req.Name,
		Action:      req.Action,
		Source:      req.Source,
		Port:        req.Port,
		Protocol:    req.Protocol,
		Priority:    req.Priority,
		Enabled:     enabled,
		Description: req.Description,
		History:     []HistoryEvent{},
		CreatedAt:   now,
	}
	if err := r.CheckInvariants(); err != nil {
		return nil, err
	}
	r.record(newHistoryEvent(historyID, "created", "", actor, now), actor, now)
	return r, nil
}

func (r *Rule) CheckInvariants() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rule name cannot be empty")
	}
	if !slices.Contains(RuleActions, r.Action) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown rule action %q", r.Action)
	}
	if !slices.Contains(Protocols, r.Protocol) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown protocol %q", r.Protocol)
	}
	if r.Priority < MinPriority || r.Priority > MaxPriority {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "priority must be between %d and %d", MinPriority, MaxPriority)
	}
	if r.Port < 0 || r.Port > 65535 {
		return dErrors.New(dErrors.CodeInvariantViolation, "port must be between 0 and 65535")
	}
	if !validation.IsIPOrCIDR(r.Source) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "invalid source %q", r.Source)
	}
	return nil
}

// ConflictsWith reports whether both rules are enabled at the same priority.
func (r *Rule) ConflictsWith(other *Rule) bool {
	return r.ID != other.ID && r.Enabled && other.Enabled && r.Priority == other.Priority
}

// ApplyUpdate merges the patch and returns the changed field names.
func (r *Rule) ApplyUpdate(req UpdateRuleRequest) []string {
	var changed []string
	if req.Name != nil && *req.Name != r.Name {
		r.Name = *req.Name
		changed = append(changed, "name")
	}
	if req.Action != nil && *req.Action != r.Action {
		r.Action = *req.Action
		changed = append(changed, "action")
	}
	if req.Source != nil && *req.Source != r.Source {
		r.Source = *req.Source
		changed = append(changed, "source")
	}
	if req.Port != nil && *req.Port != r.Port {
		r.Port = *req.Port
		changed = append(changed, "port")
	}
	if req.Protocol != nil && *req.Protocol != r.Protocol {
		r.Protocol = *req.Protocol
		changed = append(changed, "protocol")
	}
	if req.Priority != nil && *req.Priority != r.Priority {
		r.Priority = *req.Priority
		changed = append(changed, "priority")
	}
	if req.Description != nil && *req.Description != r.Description {
		r.Description = *req.Description
		changed = append(changed, "description")
	}
	return changed
}

// RecordUpdate appends the history event for an applied update.
func (r *Rule) RecordUpdate(changed []string, historyID string, actor domain.Actor, now time.Time) {
	r.record(newHistoryEvent(historyID, "updated", "updated "+strings.Join(changed, ", "), actor, now), actor, now)
}

// Toggle flips Enabled and records it.
func (r *Rule) Toggle(historyID string, actor domain.Actor, now time.Time) {
	r.Enabled = !r.Enabled
	action := "disabled"
	if r.Enabled {
		action = "enabled"
	}
	r.record(newHistoryEvent(historyID, action, fmt.Sprintf("priority %d", r.Priority), actor, now), actor, now)
}

func (r *Rule) record(ev HistoryEvent, actor domain.Actor, now time.Time) {
	r.History = append(r.History, ev)
	r.UpdatedAt = now
	r.UpdatedBy = actor.Label()
}

func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	c := *r
	c.History = slices.Clone(r.History)
	if c.History == nil {
		c.History = []HistoryEvent{}
	}
	return &c
}

// RuleFilter selects rules for listing.
type RuleFilter struct {
	Search  string
	Actions []RuleAction
	Enabled *bool
}

func (f RuleFilter) Predicates() []query.Predicate[*Rule] {
	return []query.Predicate[*Rule]{
		query.Text(f.Search, func(r *Rule) []string { return []string{r.Name, r.Source, r.Description} }),
		query.In(f.Actions, func(r *Rule) RuleAction { return r.Action }),
		query.Equal(f.Enabled, func(r *Rule) bool { return r.Enabled }),
	}
}
