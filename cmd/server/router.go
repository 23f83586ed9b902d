package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amlguard/internal/audittrail"
	platformmetrics "amlguard/internal/platform/metrics"
	"amlguard/internal/profile"
	"amlguard/internal/registry"
	"amlguard/internal/security"
	"amlguard/internal/supervision"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/platform/middleware/auth"
	"amlguard/pkg/platform/middleware/metadata"
	"amlguard/pkg/platform/middleware/request"
	"amlguard/pkg/platform/middleware/requesttime"
)

// newRouter mounts the module handlers under /api/v1 behind authentication,
// alongside the unauthenticated health and metrics endpoints.
func newRouter(a *app, validator auth.ActorValidator, m *platformmetrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(a.log))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(a.log))
	r.Use(m.Middleware)

	r.Get("/healthz", handleHealth(a.infra))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, a.log))
		registry.NewHandler(a.registry, a.log).Register(r)
		security.NewHandler(a.security, a.log).Register(r)
		audittrail.NewHandler(a.auditTrail, a.log).Register(r)
		profile.NewHandler(a.profile, a.log).Register(r)
		supervision.NewHandler(a.supervision, a.log).Register(r)
	})
	return r
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth pings every configured backend. Any failure reports 503.
func handleHealth(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]func(context.Context) error{}
		if in.db != nil {
			checks["postgres"] = in.db.PingContext
		}
		if in.pool != nil {
			checks["audit_postgres"] = in.pool.Ping
		}
		if in.redis != nil {
			checks["redis"] = in.redis.Health
		}
		if in.producer != nil {
			checks["kafka"] = in.producer.Health
		}

		report := healthReport{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report.Checks[name] = err.Error()
				report.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
