package service

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"amlguard/internal/registry/models"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// List applies the filter and returns one page, newest registrations first.
func (s *Service) List(ctx context.Context, filter models.EntityFilter, page, pageSize int) (query.Page[*models.Entity], error) {
	ctx, span := tracer.Start(ctx, "registry.List")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveList(time.Now())
	}

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return query.Page[*models.Entity]{}, s.translate(span, err, "failed to list entities")
	}
	matched := query.Filter(all, filter.Predicates(requestcontext.Now(ctx))...)
	slices.SortStableFunc(matched, newestFirst)
	span.SetAttributes(attribute.Int("registry.matched", len(matched)))
	return query.Paginate(matched, page, pageSize), nil
}

// Snapshot returns every entity unfiltered, for dashboards that aggregate
// across the whole registry.
func (s *Service) Snapshot(ctx context.Context) ([]*models.Entity, error) {
	ctx, span := tracer.Start(ctx, "registry.Snapshot")
	defer span.End()
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.translate(span, err, "failed to list entities")
	}
	return all, nil
}

func newestFirst(a, b *models.Entity) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Stats returns registry aggregates. A snapshot is reused until the TTL
// passes or any mutation invalidates it.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	ctx, span := tracer.Start(ctx, "registry.Stats")
	defer span.End()
	now := requestcontext.Now(ctx)

	s.statsMu.Lock()
	if s.stats != nil && s.statsTTL > 0 && now.Sub(s.statsAt) < s.statsTTL {
		cached := *s.stats
		cached.ByType = maps.Clone(cached.ByType)
		cached.ByStatus = maps.Clone(cached.ByStatus)
		cached.ByRiskLevel = maps.Clone(cached.ByRiskLevel)
		s.statsMu.Unlock()
		s.statsCache(true)
		return cached, nil
	}
	generation := s.generation
	s.statsMu.Unlock()
	s.statsCache(false)

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return models.Stats{}, s.translate(span, err, "failed to compute stats")
	}
	stats := models.ComputeStats(all, now)

	s.statsMu.Lock()
	// A mutation that landed while computing makes this snapshot stale.
	if s.generation == generation {
		s.stats = &stats
		s.statsAt = now
	}
	s.statsMu.Unlock()
	return stats, nil
}

func (s *Service) invalidateStats() {
	s.statsMu.Lock()
	s.generation++
	s.stats = nil
	s.statsMu.Unlock()
}

func (s *Service) statsCache(hit bool) {
	if s.metrics != nil {
		s.metrics.StatsCache(hit)
	}
}

// ExpireLapsedLicenses moves every active entity whose license expiry has
// passed to Expired, acting as the system actor. Entities that changed
// status concurrently are skipped. Returns the number expired.
func (s *Service) ExpireLapsedLicenses(ctx context.Context) (int, error) {
	ctx = requestcontext.WithActor(ctx, domain.SystemActor)
	now := requestcontext.Now(ctx)

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, s.translate(nil, err, "failed to list entities")
	}

	expired := 0
	for _, e := range all {
		if !e.LicenseLapsed(now) {
			continue
		}
		_, err := s.mutate(ctx, "ExpireLapsed", e.ID, audit.EventEntityExpired,
			func(cur *models.Entity) error {
				if !cur.LicenseLapsed(now) {
					return errNoChanges
				}
				return cur.CanApply(models.Expire)
			},
			func(cur *models.Entity, actor domain.Actor, at time.Time) string {
				details := "license expired on " + cur.License.ExpiresAt.Format(time.DateOnly)
				cur.ApplyTransition(models.Expire, details, s.newID(), actor, at)
				if s.metrics != nil {
					s.metrics.IncrementTransition(string(models.StatusExpired))
				}
				return details
			},
		)
		switch {
		case err == nil:
			expired++
		case dErrors.HasCode(err, dErrors.CodeInvalidTransition), dErrors.HasCode(err, dErrors.CodeNotFound):
		case errors.Is(err, errNoChanges):
		default:
			return expired, err
		}
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "expired lapsed licenses", "count", expired)
	}
	return expired, nil
}

// StartSweep runs ExpireLapsedLicenses every interval until ctx is cancelled.
func (s *Service) StartSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.ExpireLapsedLicenses(ctx); err != nil {
				s.logger.ErrorContext(ctx, "license sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
