// Package domain holds primitives shared by every module: who is acting, and
// in which role.
package domain

import (
	"fmt"
	"strings"
)

// Role gates what an actor may change.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOfficer    Role = "officer"
	RoleViewer     Role = "viewer"
	RoleSystem     Role = "system"
)

var roleRank = map[Role]int{
	RoleViewer:     1,
	RoleOfficer:    2,
	RoleSupervisor: 3,
	RoleAdmin:      4,
	RoleSystem:     5,
}

// ParseRole validates a role name. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok || r == RoleSystem {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether r carries at least the privileges of other.
func (r Role) AtLeast(other Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other]
}

// Actor identifies who performed a mutation. It is threaded explicitly
// through every write so history and audit entries never carry a
// hardcoded name.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// SystemActor is used by background workers.
var SystemActor = Actor{ID: "system", Name: "AMLGuard System", Role: RoleSystem}

// IsZero reports whether no actor is set.
func (a Actor) IsZero() bool {
	return a.ID == ""
}

// Label is the display form used in history entries.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
