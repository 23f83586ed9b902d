package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"amlguard/internal/profile/models"
	"amlguard/pkg/domain"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/platform/middleware/auth"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// Service defines the profile operations exposed over HTTP. Every call acts
// on the authenticated actor's own profile.
type Service interface {
	Get(ctx context.Context) (*models.Profile, error)
	UpdatePersonal(ctx context.Context, req models.UpdatePersonalRequest) (*models.Profile, error)
	UpdatePreferences(ctx context.Context, req models.UpdatePreferencesRequest) (*models.Profile, error)
	UpdateNotifications(ctx context.Context, req models.UpdateNotificationsRequest) (*models.Profile, error)
	UpdateSecurity(ctx context.Context, req models.UpdateSecurityRequest) (*models.Profile, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
	Activity(ctx context.Context, page, pageSize int) (query.Page[models.ActivityEvent], error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Use(auth.RequireRole(domain.RoleViewer, h.logger))
		r.Get("/", h.HandleGet)
		r.Get("/activity", h.HandleActivity)
		r.Patch("/personal", h.HandleUpdatePersonal)
		r.Patch("/preferences", h.HandleUpdatePreferences)
		r.Patch("/notifications", h.HandleUpdateNotifications)
		r.Patch("/security", h.HandleUpdateSecurity)
		r.Post("/password", h.HandleChangePassword)
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.Get(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to load profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := httputil.PageParams(r)
	result, err := h.service.Activity(ctx, page, pageSize)
	if err != nil {
		h.fail(ctx, w, "failed to load profile activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleUpdatePersonal(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h, w, r, h.service.UpdatePersonal)
}

func (h *Handler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h, w, r, h.service.UpdatePreferences)
}

func (h *Handler) HandleUpdateNotifications(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h, w, r, h.service.UpdateNotifications)
}

func (h *Handler) HandleUpdateSecurity(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h, w, r, h.service.UpdateSecurity)
}

// HandleChangePassword handles POST /profile/password and answers 204.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ChangePasswordRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.ChangePassword(ctx, *req); err != nil {
		h.logger.WarnContext(ctx, "password change rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdate decodes a section request and applies it.
func handleUpdate[T any, PT interface {
	*T
	Validate() error
}](h *Handler, w http.ResponseWriter, r *http.Request, apply func(context.Context, T) (*models.Profile, error)) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[T, PT](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := apply(ctx, *req)
	if err != nil {
		h.fail(ctx, w, "failed to update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
