package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/internal/audittrail/models"
	"amlguard/pkg/platform/sentinel"
)

func TestInMemoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, &models.Entry{ID: "a", Timestamp: at, Action: "login_failed"}))
	require.NoError(t, s.Append(ctx, &models.Entry{ID: "b", Timestamp: at, Action: "login_succeeded"}))

	err := s.Append(ctx, &models.Entry{ID: "a"})
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	all[0].Action = "tampered"
	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "login_failed", got.Action, "callers get copies")

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
