// Package supervision is the entry point for the supervision dashboard.
package supervision

import (
	"log/slog"

	"amlguard/internal/supervision/handler"
	"amlguard/internal/supervision/service"
)

type Service = service.Service

type Handler = handler.Handler

func NewService(registry service.Registry, security service.Security, audit service.AuditTrail, opts ...service.Option) *Service {
	return service.New(registry, security, audit, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
