// Package service serves the audit trail: it receives every published audit
// event and answers filtered, paginated queries and aggregate stats.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amlguard/internal/audittrail/metrics"
	"amlguard/internal/audittrail/models"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/sentinel"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists audit entries. There is no update path.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, id string) (*models.Entry, error)
	ListAll(ctx context.Context) ([]*models.Entry, error)
}

var tracer = otel.Tracer("amlguard.audittrail")

// Service implements audit.Store so it can be handed to the audit publisher.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	newID   func() string
}

var _ audit.Store = (*Service)(nil)

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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
		store:  store,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records one audit event. Timestamp falls back to the request time
// when the publisher did not stamp it.
func (s *Service) Append(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "audit event action is required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	entry := models.FromEvent(s.newID(), event)
	if err := s.store.Append(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementAppendFailures()
		}
		return s.translate(nil, err, "failed to append audit entry")
	}
	if s.metrics != nil {
		s.metrics.IncrementAppended(string(entry.Category))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Entry, error) {
	ctx, span := tracer.Start(ctx, "audittrail.Get")
	defer span.End()
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(span, err, "failed to load audit entry")
	}
	return entry, nil
}

// Query filters the trail and returns one page, newest first.
func (s *Service) Query(ctx context.Context, filter models.Filter, page, pageSize int) (query.Page[*models.Entry], error) {
	ctx, span := tracer.Start(ctx, "audittrail.Query")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveQuery(time.Now())
	}

	matched, err := s.matching(ctx, span, filter)
	if err != nil {
		return query.Page[*models.Entry]{}, err
	}
	// Entries sharing a timestamp keep reverse arrival order.
	slices.Reverse(matched)
	slices.SortStableFunc(matched, newestFirst)
	span.SetAttributes(attribute.Int("audit.matched", len(matched)))
	return query.Paginate(matched, page, pageSize), nil
}

// Stats aggregates the entries that match filter.
func (s *Service) Stats(ctx context.Context, filter models.Filter) (models.Stats, error) {
	ctx, span := tracer.Start(ctx, "audittrail.Stats")
	defer span.End()

	matched, err := s.matching(ctx, span, filter)
	if err != nil {
		return models.Stats{}, err
	}
	return models.ComputeStats(matched, requestcontext.Now(ctx)), nil
}

func (s *Service) matching(ctx context.Context, span trace.Span, filter models.Filter) ([]*models.Entry, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.translate(span, err, "failed to list audit entries")
	}
	return query.Filter(all, filter.Predicates()...), nil
}

func newestFirst(a, b *models.Entry) int {
	return b.Timestamp.Compare(a.Timestamp)
}

var entryMessages = sentinel.Messages{NotFound: "audit entry not found", Conflict: "audit entry already recorded"}

func (s *Service) translate(span trace.Span, err error, msg string) error {
	var out error
	switch coded := entryMessages.Coded(err); {
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
