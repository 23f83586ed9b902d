package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/sentinel"
	"amlguard/pkg/requestcontext"
)

// Stats computes console statistics from one snapshot of each store.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	ctx, span := tracer.Start(ctx, "security.Stats")
	defer span.End()

	var (
		rules   []*models.Rule
		entries []*models.IPEntry
		alerts  []*models.Alert
		events  []*models.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rules, err = s.rules.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.ipLists.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		alerts, err = s.alerts.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		events, err = s.events.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Stats{}, s.translate(span, err, sentinel.Messages{}, "failed to compute security stats")
	}
	return models.ComputeStats(rules, entries, alerts, events, requestcontext.Now(ctx)), nil
}
