// Package registry is the entry point for the entity registry module.
package registry

import (
	"log/slog"

	"amlguard/internal/registry/handler"
	"amlguard/internal/registry/service"
)

// Service exposes registry reads, mutations and statistics.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService constructs the registry service over the given store.
func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs the HTTP handler for registry routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
