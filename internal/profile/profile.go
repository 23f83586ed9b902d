// Package profile is the entry point for the profile settings module.
package profile

import (
	"log/slog"

	"amlguard/internal/profile/handler"
	"amlguard/internal/profile/password"
	"amlguard/internal/profile/service"
	"amlguard/internal/profile/store"
)

type Service = service.Service

type Handler = handler.Handler

// NewService builds the profile service over the in-memory store with
// bcrypt password hashing.
func NewService(opts ...service.Option) *Service {
	return service.New(store.New(), password.Bcrypt{}, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
