// Package iplist stores allow-list and deny-list entries.
//
// Error Contract:
//   - ErrNotFound when the entry does not exist
//   - ErrConflict when the address is already active on the target list
package iplist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in insertion order. Cross-list moves and
// automatic blocks happen under one lock so no address is ever active on
// both lists.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.IPEntry
	byID    map[string]*models.IPEntry
}

func New() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]*models.IPEntry)}
}

// Add inserts entry and deactivates every active entry on the opposite list
// whose address or prefix overlaps it. It returns the deactivated entries.
func (s *InMemoryStore) Add(_ context.Context, entry *models.IPEntry, now time.Time) ([]*models.IPEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.List == entry.List && e.IP == entry.IP && e.ActiveAt(now) {
			return nil, fmt.Errorf("%s already on %s list: %w", entry.IP, entry.List, sentinel.ErrConflict)
		}
	}

	var moved []*models.IPEntry
	for _, e := range s.entries {
		if e.List == entry.List.Opposite() && e.Active && e.Overlaps(entry) {
			e.Deactivate(entry.CreatedBy, now)
			moved = append(moved, e.Clone())
		}
	}
	s.insert(entry)
	return moved, nil
}

// BlockIfAbsent adds an automatic deny entry unless the address is already
// covered by an active deny entry. It reports whether the entry was added.
func (s *InMemoryStore) BlockIfAbsent(_ context.Context, entry *models.IPEntry, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.List == models.ListDeny && e.ActiveAt(now) && e.Covers(entry.IP) {
			return false, nil
		}
	}
	for _, e := range s.entries {
		if e.List == models.ListAllow && e.Active && e.Overlaps(entry) {
			e.Deactivate(entry.CreatedBy, now)
		}
	}
	s.insert(entry)
	return true, nil
}

// Deactivate takes an entry out of force. changed is false when it was
// already inactive.
func (s *InMemoryStore) Deactivate(_ context.Context, id, by string, now time.Time) (*models.IPEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, false, fmt.Errorf("ip entry %s: %w", id, sentinel.ErrNotFound)
	}
	changed := e.Deactivate(by, now)
	return e.Clone(), changed, nil
}

// DeactivateExpired deactivates every active entry whose expiry has passed.
func (s *InMemoryStore) DeactivateExpired(_ context.Context, by string, now time.Time) ([]*models.IPEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.IPEntry
	for _, e := range s.entries {
		if e.Active && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			e.Deactivate(by, now)
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.IPEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("ip entry %s: %w", id, sentinel.ErrNotFound)
	}
	return e.Clone(), nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.IPEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.IPEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

// insert must be called with s.mu held.
func (s *InMemoryStore) insert(entry *models.IPEntry) {
	stored := entry.Clone()
	s.entries = append(s.entries, stored)
	s.byID[stored.ID] = stored
}
