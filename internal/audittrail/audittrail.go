// Package audittrail is the entry point for the audit trail module.
package audittrail

import (
	"log/slog"

	"amlguard/internal/audittrail/handler"
	"amlguard/internal/audittrail/service"
)

// Service receives published audit events and serves the trail.
type Service = service.Service

// Handler wires HTTP endpoints to the audit trail service.
type Handler = handler.Handler

func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
