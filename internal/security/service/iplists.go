package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amlguard/internal/security/models"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// AddToList places the address on list. An active entry for the same
// address on the opposite list is deactivated in the same step.
func (s *Service) AddToList(ctx context.Context, list models.ListKind, req models.AddIPRequest) (*models.IPEntry, error) {
	ctx, span := tracer.Start(ctx, "security.AddToList", oneAttr("ip.list", string(list)))
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, ok := models.ParseListKind(string(list))
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown list %q", list)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := req.CheckExpiry(now); err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		expiresAt = &t
	}
	entry := &models.IPEntry{
		ID:        s.newID(),
		IP:        req.IP,
		List:      list,
		Reason:    req.Reason,
		Active:    true,
		CreatedAt: now,
		CreatedBy: actor.Label(),
		ExpiresAt: expiresAt,
	}
	moved, err := s.ipLists.Add(ctx, entry, now)
	if err != nil {
		return nil, s.translate(span, err, entryErrors, "failed to add ip entry")
	}

	event := audit.EventIPAllowed
	if list == models.ListDeny {
		event = audit.EventIPBlocked
	}
	s.logAudit(ctx, event,
		"entry_id", entry.ID,
		"ip", entry.IP,
		"reason", entry.Reason,
	)
	for _, m := range moved {
		s.logAudit(ctx, audit.EventIPEntryRemoved,
			"entry_id", m.ID,
			"details", m.IP+" superseded by "+entry.IP+" on the "+string(list)+" list",
		)
	}
	s.refreshDenyGauge(ctx)
	return entry, nil
}

// RemoveFromList deactivates an entry. Removing an inactive entry returns it
// unchanged.
func (s *Service) RemoveFromList(ctx context.Context, id string) (*models.IPEntry, error) {
	ctx, span := tracer.Start(ctx, "security.RemoveFromList", oneAttr("ip.entry_id", id))
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	entry, changed, err := s.ipLists.Deactivate(ctx, id, actor.Label(), requestcontext.Now(ctx))
	if err != nil {
		return nil, s.translate(span, err, entryErrors, "failed to remove ip entry")
	}
	if changed {
		s.logAudit(ctx, audit.EventIPEntryRemoved,
			"entry_id", entry.ID,
			"ip", entry.IP,
		)
		s.refreshDenyGauge(ctx)
	}
	return entry, nil
}

func (s *Service) GetEntry(ctx context.Context, id string) (*models.IPEntry, error) {
	entry, err := s.ipLists.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(nil, err, entryErrors, "failed to load ip entry")
	}
	return entry, nil
}

// ListEntries filters entries and returns one page, newest first.
func (s *Service) ListEntries(ctx context.Context, filter models.IPFilter, page, pageSize int) (query.Page[*models.IPEntry], error) {
	all, err := s.ipLists.ListAll(ctx)
	if err != nil {
		return query.Page[*models.IPEntry]{}, s.translate(nil, err, entryErrors, "failed to list ip entries")
	}
	matched := query.Filter(all, filter.Predicates(requestcontext.Now(ctx))...)
	slices.SortStableFunc(matched, func(a, b *models.IPEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return query.Paginate(matched, page, pageSize), nil
}

// IsAllowed reports whether an active, unexpired allow entry covers ip.
func (s *Service) IsAllowed(ctx context.Context, ip string) (bool, error) {
	return s.covered(ctx, models.ListAllow, ip)
}

// IsDenied reports whether an active, unexpired deny entry covers ip.
func (s *Service) IsDenied(ctx context.Context, ip string) (bool, error) {
	return s.covered(ctx, models.ListDeny, ip)
}

func (s *Service) covered(ctx context.Context, list models.ListKind, ip string) (bool, error) {
	all, err := s.ipLists.ListAll(ctx)
	if err != nil {
		return false, s.translate(nil, err, entryErrors, "failed to list ip entries")
	}
	ip = models.CanonicalSource(ip)
	now := requestcontext.Now(ctx)
	return slices.ContainsFunc(all, func(e *models.IPEntry) bool {
		return e.List == list && e.ActiveAt(now) && e.Covers(ip)
	}), nil
}

// SweepExpired deactivates entries whose expiry has passed, acting as the
// system actor. It returns the number deactivated.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	ctx = requestcontext.WithActor(ctx, domain.SystemActor)
	expired, err := s.ipLists.DeactivateExpired(ctx, domain.SystemActor.Label(), requestcontext.Now(ctx))
	if err != nil {
		return 0, s.translate(nil, err, entryErrors, "failed to sweep ip entries")
	}
	for _, e := range expired {
		s.logAudit(ctx, audit.EventIPEntryRemoved,
			"entry_id", e.ID,
			"details", e.IP+" expired",
		)
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "deactivated expired ip entries", "count", len(expired))
		if s.metrics != nil {
			s.metrics.AddExpired(len(expired))
		}
		s.refreshDenyGauge(ctx)
	}
	return len(expired), nil
}

// StartSweep runs SweepExpired every interval until ctx is cancelled.
func (s *Service) StartSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.logger.ErrorContext(ctx, "ip entry sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) refreshDenyGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	all, err := s.ipLists.ListAll(ctx)
	if err != nil {
		return
	}
	now := requestcontext.Now(ctx)
	s.metrics.SetActiveDenied(query.Count(all, func(e *models.IPEntry) bool {
		return e.List == models.ListDeny && e.ActiveAt(now)
	}))
}

func oneAttr(key, value string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String(key, value))
}
