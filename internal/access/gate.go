// Package access decides which actors may admit chapters and complete
// stages. Front ends consult a Gate before calling the pipeline.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

// ErrAccessDenied is matched by every *DeniedError.
var ErrAccessDenied = errors.New("access denied")

// DeniedError reports the role an actor lacked.
type DeniedError struct {
	Actor string
	Need  domain.Role
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: actor %q needs role %q", e.Actor, e.Need)
}

func (e *DeniedError) Unwrap() error { return ErrAccessDenied }

// ActorLookup loads registered actors.
type ActorLookup interface {
	Get(ctx context.Context, id string) (*domain.Actor, error)
}

// Policy is the configurable part of a Gate.
type Policy struct {
	// Coordinators are actor ids granted the coordinator role regardless of
	// what is stored.
	Coordinators []string
	// Enforce turns checks on. When false every check passes.
	Enforce bool
}

// Gate answers whether an actor may intake chapters or finish a stage.
type Gate struct {
	actors ActorLookup

	mu           sync.RWMutex
	coordinators map[string]bool
	enforce      bool
}

// NewGate checks roles stored in actors under policy.
func NewGate(actors ActorLookup, policy Policy) *Gate {
	g := &Gate{actors: actors}
	g.SetPolicy(policy)
	return g
}

// SetPolicy replaces the policy. It is safe to call while checks run, which
// lets a config reload take effect without a restart.
func (g *Gate) SetPolicy(policy Policy) {
	coordinators := make(map[string]bool, len(policy.Coordinators))
	for _, id := range policy.Coordinators {
		if id = strings.TrimSpace(id); id != "" {
			coordinators[id] = true
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.coordinators = coordinators
	g.enforce = policy.Enforce
}

func (g *Gate) policy() (map[string]bool, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.coordinators, g.enforce
}

// Enforced reports whether checks are on.
func (g *Gate) Enforced() bool {
	_, enforce := g.policy()
	return enforce
}

// Roles returns the effective roles of actor: stored roles plus coordinator
// when the policy names the actor. Unknown actors have no stored roles.
func (g *Gate) Roles(ctx context.Context, actorID string) ([]domain.Role, error) {
	coordinators, _ := g.policy()
	actor, err := g.actors.Get(ctx, actorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading actor %q: %w", actorID, err)
	}
	if actor == nil {
		actor = &domain.Actor{ID: actorID}
	}
	if coordinators[actorID] {
		actor.AddRole(domain.RoleCoordinator)
	}
	return actor.Roles, nil
}

// IsCoordinator reports whether actorID holds the coordinator role, stored
// or granted by policy.
func (g *Gate) IsCoordinator(ctx context.Context, actorID string) (bool, error) {
	roles, err := g.Roles(ctx, actorID)
	if err != nil {
		return false, err
	}
	return slices.Contains(roles, domain.RoleCoordinator), nil
}

// CanIntake returns nil when actor may admit chapters.
func (g *Gate) CanIntake(ctx context.Context, actorID string) error {
	return g.require(ctx, actorID, domain.RoleCoordinator)
}

// CanComplete returns nil when actor may complete tasks of stage.
// Coordinators need the stage role too.
func (g *Gate) CanComplete(ctx context.Context, actorID string, stage domain.Stage) error {
	return g.require(ctx, actorID, domain.StageRole(stage))
}

func (g *Gate) require(ctx context.Context, actorID string, need domain.Role) error {
	if _, enforce := g.policy(); !enforce {
		return nil
	}
	roles, err := g.Roles(ctx, actorID)
	if err != nil {
		return err
	}
	if !slices.Contains(roles, need) {
		return &DeniedError{Actor: actorID, Need: need}
	}
	return nil
}
