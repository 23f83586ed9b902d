package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Supervisor ")
	require.NoError(t, err)
	assert.Equal(t, RoleSupervisor, r)

	_, err = ParseRole("system")
	assert.Error(t, err, "system role cannot be claimed by a token")

	_, err = ParseRole("root")
	assert.Error(t, err)
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleOfficer))
	assert.True(t, RoleOfficer.AtLeast(RoleOfficer))
	assert.False(t, RoleViewer.AtLeast(RoleOfficer))
	assert.False(t, Role("unknown").AtLeast(RoleViewer))
}

func TestActorLabel(t *testing.T) {
	assert.Equal(t, "Jane Doe", Actor{ID: "u1", Name: "Jane Doe"}.Label())
	assert.Equal(t, "u1", Actor{ID: "u1"}.Label())
	assert.True(t, Actor{}.IsZero())
}
