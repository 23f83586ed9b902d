package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"amlguard/internal/audittrail/models"
	"amlguard/pkg/domain"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/platform/middleware/auth"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// Service defines the audit trail reads exposed over HTTP.
type Service interface {
	Get(ctx context.Context, id string) (*models.Entry, error)
	Query(ctx context.Context, filter models.Filter, page, pageSize int) (query.Page[*models.Entry], error)
	Stats(ctx context.Context, filter models.Filter) (models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read-only audit trail under /audit for supervisors.
func (h *Handler) Register(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(auth.RequireRole(domain.RoleSupervisor, h.logger))
		r.Get("/", h.HandleQuery)
		r.Get("/stats", h.HandleStats)
		r.Get("/{id}", h.HandleGet)
	})
}

// HandleQuery handles GET /audit.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, pageSize := httputil.PageParams(r)
	result, err := h.service.Query(ctx, filter, page, pageSize)
	if err != nil {
		h.fail(ctx, w, "failed to query audit trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleStats handles GET /audit/stats. It accepts the same filters as the
// listing so the counters describe what the viewer shows.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.Stats(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "failed to compute audit stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "get audit entry failed",
			"request_id", requestcontext.RequestID(ctx),
			"id", chi.URLParam(r, "id"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
