package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"amlguard/internal/registry/models"
	"amlguard/pkg/domain"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/platform/middleware/auth"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req models.RegisterEntityRequest) (*models.Entity, error)
	Get(ctx context.Context, id string) (*models.Entity, error)
	List(ctx context.Context, filter models.EntityFilter, page, pageSize int) (query.Page[*models.Entity], error)
	Update(ctx context.Context, id string, req models.UpdateEntityRequest) (*models.Entity, error)
	Approve(ctx context.Context, id string) (*models.Entity, error)
	Suspend(ctx context.Context, id string, req models.ReasonRequest) (*models.Entity, error)
	Reinstate(ctx context.Context, id string) (*models.Entity, error)
	Expire(ctx context.Context, id string) (*models.Entity, error)
	Renew(ctx context.Context, id string, req models.RenewRequest) (*models.Entity, error)
	Revoke(ctx context.Context, id string, req models.ReasonRequest) (*models.Entity, error)
	AddNote(ctx context.Context, id string, req models.AddNoteRequest) (*models.Entity, error)
	History(ctx context.Context, id string) ([]models.HistoryEvent, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints. Authentication must already have run.
// Reads need viewer, data changes need officer, license decisions need
// supervisor, and revocation needs admin.
func (h *Handler) Register(r chi.Router) {
	r.Route("/entities", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/stats", h.HandleStats)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/history", h.HandleHistory)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleOfficer, h.logger))
			r.Post("/", h.HandleRegister)
			r.Patch("/{id}", h.HandleUpdate)
			r.Post("/{id}/notes", h.HandleAddNote)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleSupervisor, h.logger))
			r.Post("/{id}/approve", h.transition(h.service.Approve, "approve"))
			r.Post("/{id}/reinstate", h.transition(h.service.Reinstate, "reinstate"))
			r.Post("/{id}/expire", h.transition(h.service.Expire, "expire"))
			r.Post("/{id}/suspend", h.HandleSuspend)
			r.Post("/{id}/renew", h.HandleRenew)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleAdmin, h.logger))
			r.Post("/{id}/revoke", h.HandleRevoke)
		})
	})
}

// HandleList handles GET /entities.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, pageSize := httputil.PageParams(r)

	result, err := h.service.List(ctx, filter, page, pageSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list entities", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute registry stats",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entity)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": history})
}

// HandleRegister handles POST /entities.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[models.RegisterEntityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	entity, err := h.service.Register(ctx, *req)
	if err != nil {
		h.logger.WarnContext(ctx, "entity registration failed",
			"request_id", requestID,
			"registration_number", req.RegistrationNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "entity registered",
		"request_id", requestID,
		"entity_id", entity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, entity)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.UpdateEntityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(w, r, "update")(h.service.Update(ctx, chi.URLParam(r, "id"), *req))
}

func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.AddNoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	entity, err := h.service.AddNote(ctx, chi.URLParam(r, "id"), *req)
	if err != nil {
		h.respond(w, r, "add note")(nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entity)
}

func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(w, r, "suspend")(h.service.Suspend(ctx, chi.URLParam(r, "id"), *req))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(w, r, "revoke")(h.service.Revoke(ctx, chi.URLParam(r, "id"), *req))
}

func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RenewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(w, r, "renew")(h.service.Renew(ctx, chi.URLParam(r, "id"), *req))
}

func (h *Handler) transition(fn func(context.Context, string) (*models.Entity, error), op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, r, op)(fn(r.Context(), chi.URLParam(r, "id")))
	}
}

// respond writes the mutated entity or the error, logging failures.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string) func(*models.Entity, error) {
	return func(entity *models.Entity, err error) {
		ctx := r.Context()
		if err != nil {
			h.logger.WarnContext(ctx, "entity "+op+" failed",
				"request_id", requestcontext.RequestID(ctx),
				"entity_id", chi.URLParam(r, "id"),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, entity)
	}
}
