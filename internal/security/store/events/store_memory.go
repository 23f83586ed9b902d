// Package events stores observed security events. The log is append-only.
package events

import (
	"context"
	"sync"

	"amlguard/internal/security/models"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.events))
	for i := range s.events {
		e := s.events[i]
		out = append(out, &e)
	}
	return out, nil
}
