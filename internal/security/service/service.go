// Package service implements the security console: firewall rules, IP
// allow/deny lists, alerts, security events with brute-force escalation,
// and console statistics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amlguard/internal/security/metrics"
	"amlguard/internal/security/models"
	"amlguard/internal/security/observability"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/sentinel"
	"amlguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// RuleStore persists firewall rules. Writes fail with sentinel.ErrConflict
// when they would leave two enabled rules at one priority.
type RuleStore interface {
	CreateIfPriorityAvailable(ctx context.Context, rule *models.Rule) error
	FindByID(ctx context.Context, id string) (*models.Rule, error)
	ListAll(ctx context.Context) ([]*models.Rule, error)
	Execute(ctx context.Context, id string, validate func(*models.Rule) error, mutate func(*models.Rule)) (*models.Rule, error)
}

// IPListStore persists allow/deny entries. Add and BlockIfAbsent must be
// atomic with respect to each other.
type IPListStore interface {
	Add(ctx context.Context, entry *models.IPEntry, now time.Time) ([]*models.IPEntry, error)
	BlockIfAbsent(ctx context.Context, entry *models.IPEntry, now time.Time) (bool, error)
	Deactivate(ctx context.Context, id, by string, now time.Time) (*models.IPEntry, bool, error)
	DeactivateExpired(ctx context.Context, by string, now time.Time) ([]*models.IPEntry, error)
	FindByID(ctx context.Context, id string) (*models.IPEntry, error)
	ListAll(ctx context.Context) ([]*models.IPEntry, error)
}

type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	ListAll(ctx context.Context) ([]*models.Alert, error)
	Execute(ctx context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error)
}

type EventStore interface {
	Append(ctx context.Context, event *models.Event) error
	ListAll(ctx context.Context) ([]*models.Event, error)
}

// FailureWindow counts failed logins per IP over [from, to].
type FailureWindow interface {
	Record(ctx context.Context, ip string, at time.Time) error
	Count(ctx context.Context, ip string, from, to time.Time) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Escalation defaults: more than DefaultThreshold failures inside
// DefaultWindow block the address.
const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
)

var tracer = otel.Tracer("amlguard.security")

// errNoChanges aborts a store write that would not change anything.
var errNoChanges = errors.New("no changes")

// Stores groups the persistence ports.
type Stores struct {
	Rules   RuleStore
	IPLists IPListStore
	Alerts  AlertStore
	Events  EventStore
}

type Service struct {
	rules          RuleStore
	ipLists        IPListStore
	alerts         AlertStore
	events         EventStore
	window         FailureWindow
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	newID          func() string
	threshold      int
	escalationWin  time.Duration
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

// WithEscalation overrides the failed-login threshold and window. Values
// that are not positive keep the defaults.
func WithEscalation(threshold int, window time.Duration) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
		if window > 0 {
			s.escalationWin = window
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(stores Stores, window FailureWindow, opts ...Option) (*Service, error) {
	if stores.Rules == nil || stores.IPLists == nil || stores.Alerts == nil || stores.Events == nil {
		return nil, errors.New("security service requires all stores")
	}
	if window == nil {
		return nil, errors.New("security service requires a failure window")
	}
	s := &Service{
		rules:         stores.Rules,
		ipLists:       stores.IPLists,
		alerts:        stores.Alerts,
		events:        stores.Events,
		window:        window,
		logger:        slog.Default(),
		newID:         uuid.NewString,
		threshold:     DefaultThreshold,
		escalationWin: DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func actorFrom(ctx context.Context) (domain.Actor, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "an authenticated actor is required")
	}
	return actor, nil
}

var (
	ruleErrors  = sentinel.Messages{NotFound: "rule not found", Conflict: "another enabled rule already uses this priority"}
	entryErrors = sentinel.Messages{NotFound: "ip entry not found", Conflict: "address is already active on this list"}
	alertErrors = sentinel.Messages{NotFound: "alert not found", Conflict: "alert already exists"}
	eventErrors = sentinel.Messages{NotFound: "event not found", Conflict: "event already recorded"}
)

// translate maps store and model errors onto coded errors.
func (s *Service) translate(span trace.Span, err error, text sentinel.Messages, msg string) error {
	var out error
	switch coded := text.Coded(err); {
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

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrList ...any) {
	observability.LogAudit(ctx, s.logger, s.auditPublisher, event, attrList...)
}
