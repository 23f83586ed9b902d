package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/internal/profile/models"
	"amlguard/pkg/platform/sentinel"
)

func seeded(t *testing.T) *InMemoryStore {
	t.Helper()
	s := New()
	require.NoError(t, s.Create(context.Background(), &models.Profile{
		ID:       "off-1",
		Personal: models.Personal{FullName: "Olu Officer"},
	}))
	return s
}

func TestCreateRejectsDuplicates(t *testing.T) {
	s := seeded(t)
	err := s.Create(context.Background(), &models.Profile{ID: "off-1"})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestFindReturnsCopies(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	p, err := s.FindByID(ctx, "off-1")
	require.NoError(t, err)
	p.FullName = "changed by caller"

	again, err := s.FindByID(ctx, "off-1")
	require.NoError(t, err)
	assert.Equal(t, "Olu Officer", again.FullName)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestExecuteCommitsOnlyOnSuccess(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.Execute(ctx, "off-1", func(p *models.Profile) error {
		p.FullName = "half-applied"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	p, _ := s.FindByID(ctx, "off-1")
	assert.Equal(t, "Olu Officer", p.FullName)

	updated, err := s.Execute(ctx, "off-1", func(p *models.Profile) error {
		p.FullName = "Olu A. Officer"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Olu A. Officer", updated.FullName)

	_, err = s.Execute(ctx, "missing", func(*models.Profile) error { return nil })
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
