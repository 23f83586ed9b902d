// Package observability provides audit logging helpers for the security module.
package observability

import (
	"context"
	"log/slog"

	"amlguard/pkg/platform/audit"
	"amlguard/pkg/requestcontext"
)

// Emitter is the audit publisher port.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// resourceKeys maps attribute keys to the audit resource type they identify.
var resourceKeys = []struct{ key, resourceType string }{
	{"rule_id", "firewall_rule"},
	{"entry_id", "ip_entry"},
	{"alert_id", "security_alert"},
	{"event_id", "security_event"},
}

// LogAudit logs audit events to both structured logger and audit publisher.
// The resource, outcome and details are read from attrList. For events about
// a login attempt, "username", "source_ip" and "user_agent" describe the
// attempt rather than the caller.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher Emitter, event audit.AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)

	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", string(event), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}

	resourceType, resourceID := extractResource(attrList)
	username := attrString(attrList, "username")
	err := publisher.Emit(ctx, audit.Event{
		Action:       string(event),
		ActorID:      username,
		ActorName:    username,
		Outcome:      audit.Outcome(attrString(attrList, "outcome")),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      extractDetails(attrList),
		RequestID:    requestID,
		IP:           attrString(attrList, "source_ip"),
		UserAgent:    attrString(attrList, "user_agent"),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func extractResource(attrList []any) (string, string) {
	for _, k := range resourceKeys {
		if val := attrString(attrList, k.key); val != "" {
			return k.resourceType, val
		}
	}
	return "", ""
}

func extractDetails(attrList []any) string {
	for _, key := range []string{"details", "reason", "ip"} {
		if val := attrString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}

// attrString returns the string value following key in a slog-style
// key/value list, or "" when the key is absent or not a string.
func attrString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			v, _ := kv[i+1].(string)
			return v
		}
	}
	return ""
}
