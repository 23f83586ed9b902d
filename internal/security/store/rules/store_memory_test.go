package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/sentinel"
)

func rule(id string, priority int, enabled bool) *models.Rule {
	return &models.Rule{
		ID:       id,
		Name:     id,
		Action:   models.ActionDeny,
		Source:   "10.0.0.0/8",
		Protocol: models.ProtocolAny,
		Priority: priority,
		Enabled:  enabled,
	}
}

func TestCreateIfPriorityAvailable(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateIfPriorityAvailable(ctx, rule("a", 5, true)))
	require.NoError(t, s.CreateIfPriorityAvailable(ctx, rule("b", 5, false)))

	err := s.CreateIfPriorityAvailable(ctx, rule("c", 5, true))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateIfPriorityAvailable(ctx, rule("a", 1, true)))
	require.NoError(t, s.CreateIfPriorityAvailable(ctx, rule("b", 2, true)))

	t.Run("priority clash after mutate leaves rule unchanged", func(t *testing.T) {
		_, err := s.Execute(ctx, "b",
			func(*models.Rule) error { return nil },
			func(r *models.Rule) { r.Priority = 1 },
		)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		stored, err := s.FindByID(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Priority)
	})

	t.Run("validate error skips mutate", func(t *testing.T) {
		boom := errors.New("boom")
		called := false
		_, err := s.Execute(ctx, "a",
			func(*models.Rule) error { return boom },
			func(*models.Rule) { called = true },
		)
		assert.ErrorIs(t, err, boom)
		assert.False(t, called)
	})

	t.Run("returned rule is a copy", func(t *testing.T) {
		got, err := s.Execute(ctx, "a",
			func(*models.Rule) error { return nil },
			func(r *models.Rule) { r.Name = "renamed" },
		)
		require.NoError(t, err)
		got.Name = "mutated by caller"
		stored, err := s.FindByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "renamed", stored.Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Execute(ctx, "zz", func(*models.Rule) error { return nil }, func(*models.Rule) {})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
