// Package security is the entry point for the security console module.
package security

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"amlguard/internal/security/handler"
	"amlguard/internal/security/service"
	"amlguard/internal/security/store/alerts"
	"amlguard/internal/security/store/events"
	"amlguard/internal/security/store/iplist"
	"amlguard/internal/security/store/rules"
	"amlguard/internal/security/store/window"
	"amlguard/pkg/platform/circuit"
)

type Service = service.Service

type Handler = handler.Handler

// InMemoryStores returns process-local stores for every security record.
func InMemoryStores() service.Stores {
	return service.Stores{
		Rules:   rules.New(),
		IPLists: iplist.New(),
		Alerts:  alerts.New(),
		Events:  events.New(),
	}
}

// NewFailureWindow counts failed logins in Redis when a client is given,
// degrading to process memory while Redis is unavailable. Without a client
// the window lives in memory only.
func NewFailureWindow(client redis.UniversalClient, retention time.Duration, logger *slog.Logger) service.FailureWindow {
	local := window.NewInMemory(retention)
	if client == nil {
		return local
	}
	return window.NewFallback(window.NewRedis(client, retention), local, circuit.New("security-failure-window"), logger)
}

func NewService(stores service.Stores, failures service.FailureWindow, opts ...service.Option) (*Service, error) {
	return service.New(stores, failures, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
