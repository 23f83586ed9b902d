// Package service implements the entity registry: registration, filtered
// listing, the license status machine and registry statistics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amlguard/internal/registry/metrics"
	"amlguard/internal/registry/models"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/sentinel"
	"amlguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists entities. Execute runs validate against a private copy of
// the entity, then mutate, and persists only when validate returns nil.
type Store interface {
	Create(ctx context.Context, entity *models.Entity) error
	FindByID(ctx context.Context, id string) (*models.Entity, error)
	ListAll(ctx context.Context) ([]*models.Entity, error)
	Execute(ctx context.Context, id string, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DefaultStatsTTL bounds how long a computed Stats snapshot is reused when
// no mutation has invalidated it.
const DefaultStatsTTL = 5 * time.Minute

var tracer = otel.Tracer("amlguard.registry")

// Service orchestrates registry reads and writes.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	newID          func() string

	statsTTL   time.Duration
	statsMu    sync.Mutex
	stats      *models.Stats
	statsAt    time.Time
	generation uint64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStatsTTL overrides DefaultStatsTTL. A zero TTL disables caching.
func WithStatsTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.statsTTL = ttl
	}
}

// WithIDGenerator replaces uuid generation, mainly for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		newID:    uuid.NewString,
		statsTTL: DefaultStatsTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the request and stores a new pending entity.
func (s *Service) Register(ctx context.Context, req models.RegisterEntityRequest) (*models.Entity, error) {
	ctx, span := tracer.Start(ctx, "registry.Register")
	defer span.End()
	start := time.Now()
	defer s.observeMutation(start)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entity, err := models.NewEntity(s.newID(), req, actor, requestcontext.Now(ctx), s.newID())
	if err != nil {
		return nil, s.translate(span, err, "failed to build entity")
	}
	if err := s.store.Create(ctx, entity); err != nil {
		return nil, s.translate(span, err, "failed to register entity")
	}
	span.SetAttributes(attribute.String("entity.id", entity.ID))

	s.invalidateStats()
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
	s.logAudit(ctx, audit.EventEntityRegistered, entity, "registered "+entity.RegistrationNumber)
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Entity, error) {
	entity, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(nil, err, "failed to load entity")
	}
	return entity, nil
}

// Update merges a partial update into the entity. Fields not present in req
// keep their values. An update that changes nothing returns the entity as is
// without recording history.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateEntityRequest) (*models.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var changed []string
	entity, err := s.mutate(ctx, "Update", id, audit.EventEntityUpdated,
		func(e *models.Entity) error {
			if err := e.CanModify(); err != nil {
				return err
			}
			trial := e.Clone()
			changed = trial.ApplyUpdate(req)
			if len(changed) == 0 {
				return errNoChanges
			}
			return trial.CheckInvariants()
		},
		func(e *models.Entity, actor domain.Actor, now time.Time) string {
			e.ApplyUpdate(req)
			details := "updated " + strings.Join(changed, ", ")
			e.Record(models.HistoryEvent{ID: s.newID(), Action: models.ActionUpdated, Details: details}, actor, now)
			return details
		},
	)
	if errors.Is(err, errNoChanges) {
		return s.Get(ctx, id)
	}
	return entity, err
}

func (s *Service) Approve(ctx context.Context, id string) (*models.Entity, error) {
	return s.transition(ctx, id, models.Approve, audit.EventEntityApproved, "")
}

func (s *Service) Suspend(ctx context.Context, id string, req models.ReasonRequest) (*models.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.Suspend, audit.EventEntitySuspended, req.Reason)
}

func (s *Service) Reinstate(ctx context.Context, id string) (*models.Entity, error) {
	return s.transition(ctx, id, models.Reinstate, audit.EventEntityReinstated, "")
}

func (s *Service) Expire(ctx context.Context, id string) (*models.Entity, error) {
	return s.transition(ctx, id, models.Expire, audit.EventEntityExpired, "")
}

func (s *Service) Revoke(ctx context.Context, id string, req models.ReasonRequest) (*models.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.Revoke, audit.EventEntityRevoked, req.Reason)
}

// Renew reactivates an expired entity with a new license expiry date.
func (s *Service) Renew(ctx context.Context, id string, req models.RenewRequest) (*models.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	expiresAt := req.ExpiresAt.UTC()
	return s.mutate(ctx, "Renew", id, audit.EventLicenseRenewed,
		func(e *models.Entity) error {
			if err := e.CanApply(models.Renew); err != nil {
				return err
			}
			if !expiresAt.After(requestcontext.Now(ctx)) {
				return dErrors.New(dErrors.CodeValidation, "new expiry date must be in the future")
			}
			if issued := e.License.IssuedAt; issued != nil && !expiresAt.After(*issued) {
				return dErrors.New(dErrors.CodeValidation, "license expiry must be after issue date")
			}
			return nil
		},
		func(e *models.Entity, actor domain.Actor, now time.Time) string {
			e.License.ExpiresAt = &expiresAt
			details := "license renewed until " + expiresAt.Format(time.DateOnly)
			e.ApplyTransition(models.Renew, details, s.newID(), actor, now)
			return details
		},
	)
}

// AddNote attaches a note. Notes are accepted in every status, including
// Revoked, so the record can still be annotated after revocation.
func (s *Service) AddNote(ctx context.Context, id string, req models.AddNoteRequest) (*models.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "AddNote", id, audit.EventEntityNoteAdded,
		func(*models.Entity) error { return nil },
		func(e *models.Entity, actor domain.Actor, now time.Time) string {
			note := models.Note{ID: s.newID(), Author: actor.Label(), Body: req.Body, CreatedAt: now}
			e.Notes = append(e.Notes, note)
			e.Record(models.HistoryEvent{ID: s.newID(), Action: models.ActionNoteAdded, Details: "note " + note.ID}, actor, now)
			return "note " + note.ID
		},
	)
}

// History returns the entity's history, newest first.
func (s *Service) History(ctx context.Context, id string) ([]models.HistoryEvent, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return entity.HistoryNewestFirst(), nil
}

func (s *Service) transition(ctx context.Context, id string, t models.Transition, event audit.AuditEvent, details string) (*models.Entity, error) {
	return s.mutate(ctx, string(t.Action), id, event,
		func(e *models.Entity) error { return e.CanApply(t) },
		func(e *models.Entity, actor domain.Actor, now time.Time) string {
			e.ApplyTransition(t, details, s.newID(), actor, now)
			if s.metrics != nil {
				s.metrics.IncrementTransition(string(t.To))
			}
			return details
		},
	)
}

// mutate is the single write path for existing entities. apply must record
// exactly one history event and returns the audit details.
func (s *Service) mutate(
	ctx context.Context,
	op, id string,
	event audit.AuditEvent,
	validate func(*models.Entity) error,
	apply func(e *models.Entity, actor domain.Actor, now time.Time) string,
) (*models.Entity, error) {
	ctx, span := tracer.Start(ctx, "registry."+op, trace.WithAttributes(attribute.String("entity.id", id)))
	defer span.End()
	start := time.Now()
	defer s.observeMutation(start)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var details string
	entity, err := s.store.Execute(ctx, id, validate, func(e *models.Entity) {
		details = apply(e, actor, now)
	})
	if err != nil {
		if errors.Is(err, errNoChanges) {
			return nil, err
		}
		return nil, s.translate(span, err, "failed to update entity")
	}

	s.invalidateStats()
	s.logAudit(ctx, event, entity, details)
	return entity, nil
}

var errNoChanges = errors.New("no changes")

func actorFrom(ctx context.Context) (domain.Actor, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "an authenticated actor is required")
	}
	return actor, nil
}

var entityMessages = sentinel.Messages{NotFound: "entity not found", Conflict: "registration number is already registered"}

// translate maps store and model errors onto coded errors.
func (s *Service) translate(span trace.Span, err error, msg string) error {
	var out error
	switch coded := entityMessages.Coded(err); {
	case coded != nil:
		out = coded
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		out = dErrors.New(dErrors.CodeValidation, err.Error())
	case errors.As(err, new(*dErrors.Error)):
		out = err
	default:
		out = dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(out)))
	}
	return out
}

func (s *Service) observeMutation(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(start)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, entity *models.Entity, details string) {
	args := []any{
		"entity_id", entity.ID,
		"registration_number", entity.RegistrationNumber,
		"status", string(entity.Status),
		"event", string(event),
		"log_type", "audit",
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:       string(event),
		ResourceType: "entity",
		ResourceID:   entity.ID,
		Details:      details,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
