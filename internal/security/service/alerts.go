package service

import (
	"cmp"
	"context"
	"slices"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// RaiseAlert records a manually raised alert.
func (s *Service) RaiseAlert(ctx context.Context, req models.RaiseAlertRequest) (*models.Alert, error) {
	ctx, span := tracer.Start(ctx, "security.RaiseAlert")
	defer span.End()

	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	alert := &models.Alert{
		ID:          s.newID(),
		Type:        req.Type,
		Severity:    req.Severity,
		Title:       req.Title,
		Description: req.Description,
		SourceIP:    req.SourceIP,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.createAlert(ctx, alert); err != nil {
		return nil, s.translate(span, err, alertErrors, "failed to raise alert")
	}
	return alert, nil
}

func (s *Service) createAlert(ctx context.Context, alert *models.Alert) error {
	if err := s.alerts.Create(ctx, alert); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementAlerts(string(alert.Severity))
	}
	s.logAudit(ctx, audit.EventAlertRaised,
		"alert_id", alert.ID,
		"details", string(alert.Severity)+": "+alert.Title,
	)
	return nil
}

// ResolveAlert marks the alert resolved. Resolving a resolved alert returns
// it unchanged.
func (s *Service) ResolveAlert(ctx context.Context, id string, req models.ResolveAlertRequest) (*models.Alert, error) {
	ctx, span := tracer.Start(ctx, "security.ResolveAlert", oneAttr("alert.id", id))
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var changed bool
	alert, err := s.alerts.Execute(ctx, id, func(a *models.Alert) error {
		changed = a.Resolve(req.Resolution, actor, now)
		return nil
	})
	if err != nil {
		return nil, s.translate(span, err, alertErrors, "failed to resolve alert")
	}
	if changed {
		s.logAudit(ctx, audit.EventAlertResolved,
			"alert_id", alert.ID,
			"details", alert.Resolution,
		)
	}
	return alert, nil
}

// ListAlerts filters alerts and returns one page, newest first.
func (s *Service) ListAlerts(ctx context.Context, filter models.AlertFilter, page, pageSize int) (query.Page[*models.Alert], error) {
	all, err := s.alerts.ListAll(ctx)
	if err != nil {
		return query.Page[*models.Alert]{}, s.translate(nil, err, alertErrors, "failed to list alerts")
	}
	matched := query.Filter(all, filter.Predicates()...)
	slices.SortStableFunc(matched, func(a, b *models.Alert) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return query.Paginate(matched, page, pageSize), nil
}
