package domain

import (
	"slices"
	"time"
)

// Actor is a participant identified by an opaque external id (a chat user
// id, a login name). Roles gate which operations the actor may invoke.
type Actor struct {
	ID          string
	DisplayName string
	Roles       []Role
	CreatedAt   time.Time
}

// Name returns the display name, falling back to the id.
func (a *Actor) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ID
}

func (a *Actor) HasRole(r Role) bool {
	return slices.Contains(a.Roles, r)
}

func (a *Actor) IsCoordinator() bool {
	return a.HasRole(RoleCoordinator)
}

// Stages returns the stages the actor may complete, in role order.
func (a *Actor) Stages() []Stage {
	var out []Stage
	for _, r := range a.Roles {
		if r != RoleCoordinator {
			out = append(out, Stage(r))
		}
	}
	return out
}

// AddRole grants r and reports whether it was newly added.
func (a *Actor) AddRole(r Role) bool {
	if a.HasRole(r) {
		return false
	}
	a.Roles = append(a.Roles, r)
	return true
}

// RemoveRole revokes r and reports whether it was held.
func (a *Actor) RemoveRole(r Role) bool {
	i := slices.Index(a.Roles, r)
	if i < 0 {
		return false
	}
	a.Roles = slices.Delete(a.Roles, i, i+1)
	return true
}
