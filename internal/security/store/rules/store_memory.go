// Package rules stores firewall rules.
//
// Error Contract:
//   - ErrNotFound when the rule does not exist
//   - ErrConflict when a write would leave two enabled rules at one priority
//   - errors returned by Execute callbacks pass through unchanged
package rules

import (
	"context"
	"fmt"
	"sync"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*models.Rule
	order []string
}

func New() *InMemoryStore {
	return &InMemoryStore{rules: make(map[string]*models.Rule)}
}

// CreateIfPriorityAvailable stores the rule unless it is enabled and another
// enabled rule already holds its priority.
func (s *InMemoryStore) CreateIfPriorityAvailable(_ context.Context, rule *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPriority(rule); err != nil {
		return err
	}
	s.rules[rule.ID] = rule.Clone()
	s.order = append(s.order, rule.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, sentinel.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id].Clone())
	}
	return out, nil
}

// Execute applies validate and mutate to a copy of the rule and replaces the
// stored rule only if both the callback and the priority check pass.
func (s *InMemoryStore) Execute(_ context.Context, id string, validate func(*models.Rule) error, mutate func(*models.Rule)) (*models.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	if err := s.checkPriority(working); err != nil {
		return nil, err
	}
	s.rules[id] = working
	return working.Clone(), nil
}

// checkPriority must be called with s.mu held.
func (s *InMemoryStore) checkPriority(rule *models.Rule) error {
	for _, other := range s.rules {
		if rule.ConflictsWith(other) {
			return fmt.Errorf("priority %d held by rule %s: %w", rule.Priority, other.ID, sentinel.ErrConflict)
		}
	}
	return nil
}
