// Package service manages the signed-in actor's own profile: personal
// details, preferences, notification and security settings, and password.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amlguard/internal/profile/metrics"
	"amlguard/internal/profile/models"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/device"
	"amlguard/pkg/platform/sentinel"
	"amlguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

type Store interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Execute(ctx context.Context, id string, fn func(*models.Profile) error) (*models.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// PasswordHasher abstracts bcrypt so tests can run at a low cost.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) error
}

var (
	tracer       = otel.Tracer("amlguard.profile")
	errNoChanges = errors.New("no changes")
)

type Service struct {
	store          Store
	hasher         PasswordHasher
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	newID          func() string
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

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(store Store, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureProfile returns the acting user's profile, creating a default one
// the first time the actor is seen.
func (s *Service) EnsureProfile(ctx context.Context) (*models.Profile, error) {
	ctx, span := tracer.Start(ctx, "profile.Ensure")
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, actor.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.translate(span, err, "failed to load profile")
	}

	p = defaultProfile(actor, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, p); err != nil {
		// Lost a race with a concurrent first request.
		if errors.Is(err, sentinel.ErrConflict) {
			existing, findErr := s.store.FindByID(ctx, actor.ID)
			if findErr != nil {
				return nil, s.translate(span, findErr, "failed to load profile")
			}
			return existing, nil
		}
		return nil, s.translate(span, err, "failed to create profile")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "profile created", "actor_id", actor.ID, "request_id", requestcontext.RequestID(ctx))
	return p, nil
}

// Get is EnsureProfile under the name the handler uses.
func (s *Service) Get(ctx context.Context) (*models.Profile, error) {
	return s.EnsureProfile(ctx)
}

func defaultProfile(actor domain.Actor, now time.Time) *models.Profile {
	personal := models.Personal{FullName: actor.Name}
	if strings.Contains(actor.ID, "@") {
		personal.Email = strings.ToLower(actor.ID)
		if personal.FullName == "" {
			personal.FullName = models.NameFromEmail(actor.ID)
		}
	}
	if personal.FullName == "" {
		personal.FullName = actor.ID
	}
	return &models.Profile{
		ID:            actor.ID,
		Personal:      personal,
		Role:          actor.Role,
		Preferences:   models.DefaultPreferences(),
		Notifications: models.DefaultNotifications(),
		Security:      models.SecuritySettings{SessionTimeoutMinutes: models.DefaultSessionTimeout},
		Activity:      []models.ActivityEvent{},
		CreatedAt:     now,
		UpdatedAt:     now,
		UpdatedBy:     actor.Label(),
	}
}

func actorFrom(ctx context.Context) (domain.Actor, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "an authenticated actor is required")
	}
	return actor, nil
}

var profileMessages = sentinel.Messages{NotFound: "profile not found", Conflict: "profile was modified concurrently"}

func (s *Service) translate(span trace.Span, err error, msg string) error {
	var out error
	switch coded := profileMessages.Coded(err); {
	case coded != nil:
		out = coded
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

func (s *Service) activity(ctx context.Context, event audit.AuditEvent, details string) models.ActivityEvent {
	return models.ActivityEvent{
		ID:      s.newID(),
		Action:  string(event),
		Details: details,
		At:      requestcontext.Now(ctx),
		IP:      requestcontext.ClientIP(ctx),
		Device:  device.Describe(requestcontext.UserAgent(ctx)),
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, profileID, details string, outcome audit.Outcome) {
	args := []any{
		"profile_id", profileID,
		"event", string(event),
		"outcome", string(outcome),
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
		Outcome:      outcome,
		ResourceType: "profile",
		ResourceID:   profileID,
		Details:      details,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
