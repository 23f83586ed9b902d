package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"

	"amlguard/internal/security/models"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/platform/middleware/auth"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// Service defines the security console operations exposed over HTTP.
type Service interface {
	CreateRule(ctx context.Context, req models.CreateRuleRequest) (*models.Rule, error)
	GetRule(ctx context.Context, id string) (*models.Rule, error)
	UpdateRule(ctx context.Context, id string, req models.UpdateRuleRequest) (*models.Rule, error)
	ToggleRule(ctx context.Context, id string) (*models.Rule, error)
	ListRules(ctx context.Context, filter models.RuleFilter, page, pageSize int) (query.Page[*models.Rule], error)

	AddToList(ctx context.Context, list models.ListKind, req models.AddIPRequest) (*models.IPEntry, error)
	RemoveFromList(ctx context.Context, id string) (*models.IPEntry, error)
	GetEntry(ctx context.Context, id string) (*models.IPEntry, error)
	ListEntries(ctx context.Context, filter models.IPFilter, page, pageSize int) (query.Page[*models.IPEntry], error)
	IsAllowed(ctx context.Context, ip string) (bool, error)
	IsDenied(ctx context.Context, ip string) (bool, error)

	RaiseAlert(ctx context.Context, req models.RaiseAlertRequest) (*models.Alert, error)
	ResolveAlert(ctx context.Context, id string, req models.ResolveAlertRequest) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter models.AlertFilter, page, pageSize int) (query.Page[*models.Alert], error)

	RecordEvent(ctx context.Context, req models.RecordEventRequest) (*models.EventOutcome, error)
	ListEvents(ctx context.Context, filter models.EventFilter, page, pageSize int) (query.Page[*models.Event], error)

	Stats(ctx context.Context) (models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts security endpoints under /security. Reads are open to any
// authenticated actor. Officers feed events and raise alerts, supervisors
// manage IP lists and resolve alerts, and firewall rules need admin.
func (h *Handler) Register(r chi.Router) {
	r.Route("/security", func(r chi.Router) {
		r.Get("/stats", h.HandleStats)
		r.Get("/rules", h.HandleListRules)
		r.Get("/rules/{id}", h.HandleGetRule)
		r.Get("/ip-lists", h.HandleListEntries)
		r.Get("/ip-lists/check", h.HandleCheckIP)
		r.Get("/ip-lists/entries/{id}", h.HandleGetEntry)
		r.Get("/alerts", h.HandleListAlerts)
		r.Get("/events", h.HandleListEvents)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleOfficer, h.logger))
			r.Post("/events", h.HandleRecordEvent)
			r.Post("/alerts", h.HandleRaiseAlert)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleSupervisor, h.logger))
			r.Post("/ip-lists/{list}", h.HandleAddToList)
			r.Delete("/ip-lists/entries/{id}", h.HandleRemoveFromList)
			r.Post("/alerts/{id}/resolve", h.HandleResolveAlert)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleAdmin, h.logger))
			r.Post("/rules", h.HandleCreateRule)
			r.Patch("/rules/{id}", h.HandleUpdateRule)
			r.Post("/rules/{id}/toggle", h.HandleToggleRule)
		})
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to compute security stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleListRules handles GET /security/rules.
func (h *Handler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	filter, err := ruleFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, pageSize := httputil.PageParams(r)
	writePage[*models.Rule](w, r, h, "failed to list rules")(h.service.ListRules(r.Context(), filter, page, pageSize))
}

func (h *Handler) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	respond[*models.Rule](w, r, h, "get rule", http.StatusOK)(h.service.GetRule(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateRuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	respond[*models.Rule](w, r, h, "create rule", http.StatusCreated)(h.service.CreateRule(ctx, *req))
}

func (h *Handler) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.UpdateRuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	respond[*models.Rule](w, r, h, "update rule", http.StatusOK)(h.service.UpdateRule(ctx, chi.URLParam(r, "id"), *req))
}

func (h *Handler) HandleToggleRule(w http.ResponseWriter, r *http.Request) {
	respond[*models.Rule](w, r, h, "toggle rule", http.StatusOK)(h.service.ToggleRule(r.Context(), chi.URLParam(r, "id")))
}

// HandleListEntries handles GET /security/ip-lists.
func (h *Handler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := ipFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, pageSize := httputil.PageParams(r)
	writePage[*models.IPEntry](w, r, h, "failed to list ip entries")(h.service.ListEntries(r.Context(), filter, page, pageSize))
}

func (h *Handler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	respond[*models.IPEntry](w, r, h, "get ip entry", http.StatusOK)(h.service.GetEntry(r.Context(), chi.URLParam(r, "id")))
}

// HandleCheckIP handles GET /security/ip-lists/check?ip=.
func (h *Handler) HandleCheckIP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := r.URL.Query().Get("ip")
	if _, err := netip.ParseAddr(strings.TrimSpace(ip)); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ip must be a valid address"))
		return
	}
	allowed, err := h.service.IsAllowed(ctx, ip)
	if err != nil {
		h.fail(ctx, w, "failed to check ip", err)
		return
	}
	denied, err := h.service.IsDenied(ctx, ip)
	if err != nil {
		h.fail(ctx, w, "failed to check ip", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"ip":      models.CanonicalSource(ip),
		"allowed": allowed,
		"denied":  denied,
	})
}

// HandleAddToList handles POST /security/ip-lists/{list}.
func (h *Handler) HandleAddToList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, ok := models.ParseListKind(chi.URLParam(r, "list"))
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown list %q", chi.URLParam(r, "list")))
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.AddIPRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	respond[*models.IPEntry](w, r, h, "add to "+string(list)+" list", http.StatusCreated)(h.service.AddToList(ctx, list, *req))
}

func (h *Handler) HandleRemoveFromList(w http.ResponseWriter, r *http.Request) {
	respond[*models.IPEntry](w, r, h, "remove ip entry", http.StatusOK)(h.service.RemoveFromList(r.Context(), chi.URLParam(r, "id")))
}

// HandleListAlerts handles GET /security/alerts.
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := alertFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, pageSize := httputil.PageParams(r)
	writePage[*models.Alert](w, r, h, "failed to list alerts")(h.service.ListAlerts(r.Context(), filter, page, pageSize))
}

func (h *Handler) HandleRaiseAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RaiseAlertRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	respond[*models.Alert](w, r, h, "raise alert", http.StatusCreated)(h.service.RaiseAlert(ctx, *req))
}

func (h *Handler) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ResolveAlertRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	respond[*models.Alert](w, r, h, "resolve alert", http.StatusOK)(h.service.ResolveAlert(ctx, chi.URLParam(r, "id"), *req))
}

// HandleListEvents handles GET /security/events.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, pageSize := httputil.PageParams(r)
	writePage[*models.Event](w, r, h, "failed to list events")(h.service.ListEvents(r.Context(), filter, page, pageSize))
}

// HandleRecordEvent handles POST /security/events. The response reports
// whether the event escalated into an automatic block.
func (h *Handler) HandleRecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.RecordEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	outcome, err := h.service.RecordEvent(ctx, *req)
	if err != nil {
		h.fail(ctx, w, "failed to record security event", err)
		return
	}
	if outcome.Escalated {
		h.logger.WarnContext(ctx, "failed logins escalated to automatic block",
			"request_id", requestID,
			"ip", outcome.Event.IP,
			"failures", outcome.Failures,
		)
	}
	httputil.WriteJSON(w, http.StatusCreated, outcome)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// respond writes the result with status or the error, logging failures.
func respond[T any](w http.ResponseWriter, r *http.Request, h *Handler, op string, status int) func(T, error) {
	return func(result T, err error) {
		if err != nil {
			ctx := r.Context()
			h.logger.WarnContext(ctx, op+" failed",
				"request_id", requestcontext.RequestID(ctx),
				"id", chi.URLParam(r, "id"),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, status, result)
	}
}

func writePage[T any](w http.ResponseWriter, r *http.Request, h *Handler, msg string) func(query.Page[T], error) {
	return func(page query.Page[T], err error) {
		if err != nil {
			h.fail(r.Context(), w, msg, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, page)
	}
}
