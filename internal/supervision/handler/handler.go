package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"amlguard/internal/supervision/models"
	"amlguard/pkg/domain"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/platform/middleware/auth"
	"amlguard/pkg/requestcontext"
)

type Service interface {
	Overview(ctx context.Context) (models.Overview, error)
	RegistrationSeries(ctx context.Context, months int) (models.Series, error)
	ComplianceDistribution(ctx context.Context) (models.Series, error)
	ExpiryTimeline(ctx context.Context) (models.Series, error)
	Dashboard(ctx context.Context, months int) (models.Dashboard, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the analytics endpoints under /supervision for supervisors.
func (h *Handler) Register(r chi.Router) {
	r.Route("/supervision", func(r chi.Router) {
		r.Use(auth.RequireRole(domain.RoleSupervisor, h.logger))
		r.Get("/dashboard", h.HandleDashboard)
		r.Get("/overview", h.HandleOverview)
		r.Get("/registrations", h.HandleRegistrations)
		r.Get("/compliance", h.HandleCompliance)
		r.Get("/expiry", h.HandleExpiry)
	})
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	months, ok := h.months(w, r)
	if !ok {
		return
	}
	write[models.Dashboard](h, w, r, "dashboard")(h.service.Dashboard(r.Context(), months))
}

func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	write[models.Overview](h, w, r, "overview")(h.service.Overview(r.Context()))
}

// HandleRegistrations handles GET /supervision/registrations?months=N.
func (h *Handler) HandleRegistrations(w http.ResponseWriter, r *http.Request) {
	months, ok := h.months(w, r)
	if !ok {
		return
	}
	write[models.Series](h, w, r, "registration series")(h.service.RegistrationSeries(r.Context(), months))
}

func (h *Handler) HandleCompliance(w http.ResponseWriter, r *http.Request) {
	write[models.Series](h, w, r, "compliance distribution")(h.service.ComplianceDistribution(r.Context()))
}

func (h *Handler) HandleExpiry(w http.ResponseWriter, r *http.Request) {
	write[models.Series](h, w, r, "expiry timeline")(h.service.ExpiryTimeline(r.Context()))
}

func (h *Handler) months(w http.ResponseWriter, r *http.Request) (int, bool) {
	months, err := httputil.QueryInt(r, "months")
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	if months == nil {
		return models.DefaultMonths, true
	}
	return models.ClampMonths(*months), true
}

func write[T any](h *Handler, w http.ResponseWriter, r *http.Request, what string) func(T, error) {
	return func(result T, err error) {
		if err != nil {
			ctx := r.Context()
			h.logger.ErrorContext(ctx, "failed to compute "+what,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}
