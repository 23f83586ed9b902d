// Package store persists registry entities.
//
// Error Contract:
//   - ErrNotFound when the requested entity does not exist
//   - ErrConflict when a registration number is already taken
//   - errors returned by Execute callbacks pass through unchanged
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"amlguard/internal/registry/models"
	"amlguard/pkg/platform/sentinel"
)

// InMemory keeps entities in a map plus insertion order. One writer at a
// time; readers get deep copies.
type InMemory struct {
	mu       sync.RWMutex
	entities map[string]*models.Entity
	order    []string
	regNums  map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		entities: make(map[string]*models.Entity),
		regNums:  make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := regKey(entity.RegistrationNumber)
	if _, taken := s.regNums[key]; taken {
		return fmt.Errorf("registration number %s: %w", entity.RegistrationNumber, sentinel.ErrConflict)
	}
	if _, exists := s.entities[entity.ID]; exists {
		return fmt.Errorf("entity %s: %w", entity.ID, sentinel.ErrConflict)
	}
	s.entities[entity.ID] = entity.Clone()
	s.order = append(s.order, entity.ID)
	s.regNums[key] = entity.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, sentinel.ErrNotFound)
	}
	return e.Clone(), nil
}

// ListAll returns a consistent snapshot in insertion order.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id].Clone())
	}
	return out, nil
}

// Execute runs validate then mutate on a copy of the entity while holding the
// write lock. The copy replaces the stored entity only if validate succeeds,
// so a rejected mutation leaves the store untouched.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.entities[id] = working
	return working.Clone(), nil
}

func regKey(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}
