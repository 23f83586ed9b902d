// Package store persists profiles keyed by actor ID.
//
// Error Contract:
//   - Create returns sentinel.ErrConflict when a profile already exists.
//   - FindByID and Execute return sentinel.ErrNotFound for unknown IDs.
//   - Execute returns the callback's error unchanged and leaves the stored
//     profile untouched when the callback fails.
package store

import (
	"context"
	"fmt"
	"sync"

	"amlguard/internal/profile/models"
	"amlguard/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
}

func New() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]*models.Profile)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s: %w", p.ID, sentinel.ErrConflict)
	}
	s.profiles[p.ID] = p.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}
	return p.Clone(), nil
}

// Execute applies fn to a private copy under the write lock and stores the
// copy only when fn succeeds.
func (s *InMemoryStore) Execute(_ context.Context, id string, fn func(*models.Profile) error) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.profiles[id] = next
	return next.Clone(), nil
}
