// Package service assembles the supervision dashboard from the registry,
// security and audit-trail modules.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	auditmodels "amlguard/internal/audittrail/models"
	regmodels "amlguard/internal/registry/models"
	secmodels "amlguard/internal/security/models"
	"amlguard/internal/supervision/models"
	"amlguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

type Registry interface {
	Snapshot(ctx context.Context) ([]*regmodels.Entity, error)
	Stats(ctx context.Context) (regmodels.Stats, error)
}

type Security interface {
	Stats(ctx context.Context) (secmodels.Stats, error)
}

type AuditTrail interface {
	Stats(ctx context.Context, filter auditmodels.Filter) (auditmodels.Stats, error)
}

var tracer = otel.Tracer("amlguard.supervision")

const overviewWindow = 24 * time.Hour

type Service struct {
	registry Registry
	security Security
	audit    AuditTrail
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(registry Registry, security Security, audit AuditTrail, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		security: security,
		audit:    audit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overview collects registry, security and last-24h audit stats
// concurrently. The first failure cancels the others.
func (s *Service) Overview(ctx context.Context) (models.Overview, error) {
	ctx, span := tracer.Start(ctx, "supervision.Overview")
	defer span.End()

	now := requestcontext.Now(ctx)
	out := models.Overview{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Registry, err = s.registry.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Security, err = s.security.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		from := now.Add(-overviewWindow)
		out.Audit, err = s.audit.Stats(gctx, auditmodels.Filter{From: &from})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "overview failed")
		return models.Overview{}, err
	}
	return out, nil
}

func (s *Service) RegistrationSeries(ctx context.Context, months int) (models.Series, error) {
	entities, err := s.registry.Snapshot(ctx)
	if err != nil {
		return models.Series{}, err
	}
	return models.RegistrationSeries(entities, requestcontext.Now(ctx), months), nil
}

func (s *Service) ComplianceDistribution(ctx context.Context) (models.Series, error) {
	entities, err := s.registry.Snapshot(ctx)
	if err != nil {
		return models.Series{}, err
	}
	return models.ComplianceDistribution(entities), nil
}

func (s *Service) ExpiryTimeline(ctx context.Context) (models.Series, error) {
	entities, err := s.registry.Snapshot(ctx)
	if err != nil {
		return models.Series{}, err
	}
	return models.ExpiryTimeline(entities, requestcontext.Now(ctx)), nil
}

// Dashboard computes the overview and the three registry series from one
// registry snapshot, with the overview running alongside.
func (s *Service) Dashboard(ctx context.Context, months int) (models.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "supervision.Dashboard")
	defer span.End()

	now := requestcontext.Now(ctx)
	var out models.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Overview, err = s.Overview(gctx)
		return err
	})
	g.Go(func() error {
		entities, err := s.registry.Snapshot(gctx)
		if err != nil {
			return err
		}
		out.Registrations = models.RegistrationSeries(entities, now, months)
		out.Compliance = models.ComplianceDistribution(entities)
		out.Expiry = models.ExpiryTimeline(entities, now)
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard failed")
		s.logger.ErrorContext(ctx, "failed to assemble supervision dashboard",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return models.Dashboard{}, err
	}
	return out, nil
}
