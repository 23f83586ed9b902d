// Package store persists the audit trail. Entries are append-only: there is
// no update or delete path in any implementation.
//
// Error Contract:
//   - Append returns sentinel.ErrConflict when the entry ID already exists.
//   - FindByID returns sentinel.ErrNotFound for unknown IDs.
package store

import (
	"context"
	"fmt"
	"sync"

	"amlguard/internal/audittrail/models"
	"amlguard/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in arrival order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.Entry
	byID    map[string]*models.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]*models.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[entry.ID]; ok {
		return fmt.Errorf("audit entry %s: %w", entry.ID, sentinel.ErrConflict)
	}
	stored := *entry
	s.entries = append(s.entries, &stored)
	s.byID[stored.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", id, sentinel.ErrNotFound)
	}
	out := *e
	return &out, nil
}

// ListAll returns copies of every entry, oldest first.
func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, len(s.entries))
	for i, e := range s.entries {
		c := *e
		out[i] = &c
	}
	return out, nil
}
