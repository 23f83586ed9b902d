package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"amlguard/internal/supervision/models"
	"amlguard/pkg/domain"
	"amlguard/pkg/requestcontext"
	"amlguard/pkg/testutil"
)

// stubService records the months it was asked for.
type stubService struct {
	months int
}

func (s *stubService) Overview(context.Context) (models.Overview, error) {
	return models.Overview{GeneratedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}, nil
}

func (s *stubService) RegistrationSeries(_ context.Context, months int) (models.Series, error) {
	s.months = months
	return models.Series{Labels: []string{"2026-03"}, Values: []int{2}}, nil
}

func (s *stubService) ComplianceDistribution(context.Context) (models.Series, error) {
	return models.Series{}, nil
}

func (s *stubService) ExpiryTimeline(context.Context) (models.Series, error) {
	return models.Series{}, nil
}

func (s *stubService) Dashboard(_ context.Context, months int) (models.Dashboard, error) {
	s.months = months
	return models.Dashboard{}, nil
}

func newRouter(svc Service, actor domain.Actor) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithActor(req.Context(), actor)))
		})
	})
	New(svc, logger).Register(r)
	return r
}

func TestRegistrationsMonthsParameter(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc, testutil.Supervisor)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/supervision/registrations?months=6"))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, 6, svc.months)
	series := testutil.UnmarshalResponse[models.Series](t, rr)
	assert.Equal(t, []int{2}, series.Values)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/supervision/dashboard?months=999"))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, models.MaxMonths, svc.months)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/supervision/registrations?months=abc"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestSupervisionRequiresSupervisor(t *testing.T) {
	r := newRouter(&stubService{}, testutil.Officer)
	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/supervision/overview"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
