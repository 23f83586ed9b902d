package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by the part of the system they touch.
// The audit-trail viewer filters and aggregates on it.
type EventCategory string

const (
	CategoryAuthentication   EventCategory = "authentication"
	CategoryEntityManagement EventCategory = "entity_management"
	CategorySecurity         EventCategory = "security"
	CategoryConfiguration    EventCategory = "configuration"
	CategoryDataAccess       EventCategory = "data_access"
	CategoryProfile          EventCategory = "profile"
)

// Categories lists every known category in display order.
var Categories = []EventCategory{
	CategoryAuthentication,
	CategoryEntityManagement,
	CategorySecurity,
	CategoryConfiguration,
	CategoryDataAccess,
	CategoryProfile,
}

// Severity levels for audit events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Severities lists every known severity from least to most severe.
var Severities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

// Outcome records whether the audited action took effect.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time
	Action       string
	Category     EventCategory
	Severity     Severity
	Outcome      Outcome
	ActorID      string
	ActorName    string
	ActorRole    string
	ResourceType string
	ResourceID   string
	Details      string
	// Request enrichment, filled from context by the publisher when empty.
	RequestID string
	IP        string
	UserAgent string
}

// Store receives audit events. Implementations must treat events as append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	// Authentication events
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"

	// Registry events
	EventEntityRegistered AuditEvent = "entity_registered"
	EventEntityUpdated    AuditEvent = "entity_updated"
	EventEntityApproved   AuditEvent = "entity_approved"
	EventEntitySuspended  AuditEvent = "entity_suspended"
	EventEntityReinstated AuditEvent = "entity_reinstated"
	EventEntityExpired    AuditEvent = "entity_expired"
	EventLicenseRenewed   AuditEvent = "license_renewed"
	EventEntityRevoked    AuditEvent = "entity_revoked"
	EventEntityNoteAdded  AuditEvent = "entity_note_added"

	// Security events
	EventFirewallRuleCreated AuditEvent = "firewall_rule_created"
	EventFirewallRuleUpdated AuditEvent = "firewall_rule_updated"
	EventFirewallRuleToggled AuditEvent = "firewall_rule_toggled"
	EventIPAllowed           AuditEvent = "ip_allowed"
	EventIPBlocked           AuditEvent = "ip_blocked"
	EventIPAutoBlocked       AuditEvent = "ip_auto_blocked"
	EventIPEntryRemoved      AuditEvent = "ip_entry_removed"
	EventAlertRaised         AuditEvent = "security_alert_raised"
	EventAlertResolved       AuditEvent = "security_alert_resolved"

	// Profile events
	EventProfileUpdated     AuditEvent = "profile_updated"
	EventPreferencesUpdated AuditEvent = "preferences_updated"
	EventPasswordChanged    AuditEvent = "password_changed"
	EventSecuritySettings   AuditEvent = "security_settings_updated"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventLoginSucceeded: CategoryAuthentication,
	EventLoginFailed:    CategoryAuthentication,

	EventEntityRegistered: CategoryEntityManagement,
	EventEntityUpdated:    CategoryEntityManagement,
	EventEntityApproved:   CategoryEntityManagement,
	EventEntitySuspended:  CategoryEntityManagement,
	EventEntityReinstated: CategoryEntityManagement,
	EventEntityExpired:    CategoryEntityManagement,
	EventLicenseRenewed:   CategoryEntityManagement,
	EventEntityRevoked:    CategoryEntityManagement,
	EventEntityNoteAdded:  CategoryEntityManagement,

	EventFirewallRuleCreated: CategoryConfiguration,
	EventFirewallRuleUpdated: CategoryConfiguration,
	EventFirewallRuleToggled: CategoryConfiguration,

	EventIPAllowed:        CategorySecurity,
	EventIPBlocked:        CategorySecurity,
	EventIPAutoBlocked:    CategorySecurity,
	EventIPEntryRemoved:   CategorySecurity,
	EventAlertRaised:      CategorySecurity,
	EventAlertResolved:    CategorySecurity,
	EventSecuritySettings: CategorySecurity,
	EventPasswordChanged:  CategorySecurity,

	EventProfileUpdated:     CategoryProfile,
	EventPreferencesUpdated: CategoryProfile,
}

// eventSeverities lists events that are more than informational.
var eventSeverities = map[AuditEvent]Severity{
	EventLoginFailed:      SeverityWarning,
	EventEntitySuspended:  SeverityWarning,
	EventEntityExpired:    SeverityWarning,
	EventEntityRevoked:    SeverityCritical,
	EventIPBlocked:        SeverityWarning,
	EventIPAutoBlocked:    SeverityCritical,
	EventAlertRaised:      SeverityWarning,
	EventPasswordChanged:  SeverityWarning,
	EventSecuritySettings: SeverityWarning,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryDataAccess.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryDataAccess
}

// Severity returns the default severity for this audit event.
func (e AuditEvent) Severity() Severity {
	if sev, ok := eventSeverities[e]; ok {
		return sev
	}
	return SeverityInfo
}

// Normalize fills derived fields that the emitter left empty.
func (e Event) Normalize() Event {
	if e.Category == "" {
		e.Category = AuditEvent(e.Action).Category()
	}
	if e.Severity == "" {
		e.Severity = AuditEvent(e.Action).Severity()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	return e
}
