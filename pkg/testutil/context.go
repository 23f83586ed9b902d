package testutil

import (
	"context"
	"time"

	"amlguard/pkg/domain"
	"amlguard/pkg/requestcontext"
)

// ActorContext builds a service-level context carrying an actor and a fixed
// request time, the state every mutation expects.
func ActorContext(actor domain.Actor, now time.Time) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, now)
}

// Common actors used across module tests.
var (
	Admin      = domain.Actor{ID: "admin-1", Name: "Amara Admin", Role: domain.RoleAdmin}
	Supervisor = domain.Actor{ID: "sup-1", Name: "Sam Supervisor", Role: domain.RoleSupervisor}
	Officer    = domain.Actor{ID: "off-1", Name: "Olu Officer", Role: domain.RoleOfficer}
	Viewer     = domain.Actor{ID: "view-1", Name: "Vic Viewer", Role: domain.RoleViewer}
)
