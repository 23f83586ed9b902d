// Package alerts stores security alerts.
//
// Error Contract:
//   - ErrNotFound when the alert does not exist
//   - errors returned by Execute callbacks pass through unchanged
package alerts

import (
	"context"
	"fmt"
	"sync"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	alerts map[string]*models.Alert
	order  []string
}

func New() *InMemoryStore {
	return &InMemoryStore{alerts: make(map[string]*models.Alert)}
}

func (s *InMemoryStore) Create(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.alerts[alert.ID]; exists {
		return fmt.Errorf("alert %s: %w", alert.ID, sentinel.ErrConflict)
	}
	s.alerts[alert.ID] = alert.Clone()
	s.order = append(s.order, alert.ID)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Alert, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.alerts[id].Clone())
	}
	return out, nil
}

// Execute runs fn on a copy of the alert and stores the copy when fn
// returns nil.
func (s *InMemoryStore) Execute(_ context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.alerts[id] = working
	return working.Clone(), nil
}
