package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"amlguard/internal/security/models"
	"amlguard/pkg/domain"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// RecordEvent stores a security event. Failed logins are counted per IP and
// escalate to an automatic block and a brute_force alert once more than the
// threshold fall inside the trailing window. Allow-listed addresses are
// never escalated, and an address that is already denied is not blocked
// again.
func (s *Service) RecordEvent(ctx context.Context, req models.RecordEventRequest) (*models.EventOutcome, error) {
	ctx, span := tracer.Start(ctx, "security.RecordEvent")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	event := &models.Event{
		ID:         s.newID(),
		Type:       req.Type,
		IP:         req.IP,
		Username:   req.Username,
		UserAgent:  req.UserAgent,
		OccurredAt: now,
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, s.translate(span, err, eventErrors, "failed to record event")
	}
	span.SetAttributes(attribute.String("event.type", string(event.Type)))
	if s.metrics != nil {
		s.metrics.IncrementEvent(string(event.Type))
	}
	s.auditLogin(ctx, event)

	outcome := &models.EventOutcome{Event: event}
	if event.Type != models.EventLoginFailed {
		return outcome, nil
	}
	if err := s.escalate(ctx, event, outcome); err != nil {
		return nil, s.translate(span, err, eventErrors, "failed to evaluate escalation")
	}
	span.SetAttributes(attribute.Bool("event.escalated", outcome.Escalated))
	return outcome, nil
}

func (s *Service) auditLogin(ctx context.Context, event *models.Event) {
	var auditEvent audit.AuditEvent
	outcome := audit.OutcomeSuccess
	switch event.Type {
	case models.EventLoginFailed:
		auditEvent = audit.EventLoginFailed
		outcome = audit.OutcomeFailure
	case models.EventLoginSucceeded:
		auditEvent = audit.EventLoginSucceeded
	default:
		return
	}
	s.logAudit(ctx, auditEvent,
		"event_id", event.ID,
		"username", event.Username,
		"source_ip", event.IP,
		"user_agent", event.UserAgent,
		"outcome", string(outcome),
	)
}

func (s *Service) escalate(ctx context.Context, event *models.Event, outcome *models.EventOutcome) error {
	if s.metrics != nil {
		s.metrics.IncrementFailedLogins()
	}
	allowed, err := s.IsAllowed(ctx, event.IP)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	if err := s.window.Record(ctx, event.IP, event.OccurredAt); err != nil {
		return err
	}
	if d, ok := s.window.(interface{ Degraded() bool }); ok && s.metrics != nil {
		s.metrics.SetDegraded(d.Degraded())
	}
	failures, err := s.window.Count(ctx, event.IP, event.OccurredAt.Add(-s.escalationWin), event.OccurredAt)
	if err != nil {
		return err
	}
	outcome.Failures = failures
	if failures <= s.threshold {
		return nil
	}

	block := &models.IPEntry{
		ID:        s.newID(),
		IP:        event.IP,
		List:      models.ListDeny,
		Reason:    fmt.Sprintf("%d failed logins within %s", failures, s.escalationWin),
		Active:    true,
		Automatic: true,
		CreatedAt: event.OccurredAt,
		CreatedBy: domain.SystemActor.Label(),
	}
	blocked, err := s.ipLists.BlockIfAbsent(ctx, block, event.OccurredAt)
	if err != nil {
		return err
	}
	if !blocked {
		return nil
	}

	sysCtx := requestcontext.WithActor(ctx, domain.SystemActor)
	if s.metrics != nil {
		s.metrics.IncrementAutoBlocks()
	}
	s.logAudit(sysCtx, audit.EventIPAutoBlocked,
		"entry_id", block.ID,
		"ip", block.IP,
		"reason", block.Reason,
	)
	s.refreshDenyGauge(ctx)

	alert := &models.Alert{
		ID:          s.newID(),
		Type:        models.AlertTypeBruteForce,
		Severity:    models.SeverityHigh,
		Title:       "Brute-force login attempts from " + event.IP,
		Description: block.Reason + "; address blocked automatically",
		SourceIP:    event.IP,
		CreatedAt:   event.OccurredAt,
	}
	if err := s.createAlert(sysCtx, alert); err != nil {
		return err
	}

	outcome.Escalated = true
	outcome.Block = block
	outcome.Alert = alert
	return nil
}

// ListEvents filters events and returns one page, newest first.
func (s *Service) ListEvents(ctx context.Context, filter models.EventFilter, page, pageSize int) (query.Page[*models.Event], error) {
	all, err := s.events.ListAll(ctx)
	if err != nil {
		return query.Page[*models.Event]{}, s.translate(nil, err, eventErrors, "failed to list events")
	}
	matched := query.Filter(all, filter.Predicates()...)
	slices.SortStableFunc(matched, func(a, b *models.Event) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return query.Paginate(matched, page, pageSize), nil
}
