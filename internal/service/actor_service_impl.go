package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

type actorService struct {
	graph  *stagegraph.Graph
	actors repository.ActorRepo
	events repository.EventRepo
	uow    db.UnitOfWork
	now    func() time.Time
}

func NewActorService(graph *stagegraph.Graph, actors repository.ActorRepo, events repository.EventRepo, uow db.UnitOfWork) ActorService {
	return &actorService{graph: graph, actors: actors, events: events, uow: uow, now: utcNow}
}

func (s *actorService) Get(ctx context.Context, id string) (*domain.Actor, error) {
	return s.actors.Get(ctx, strings.TrimSpace(id))
}

func (s *actorService) Ensure(ctx context.Context, id, displayName string) (*domain.Actor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("actor id is required")
	}
	var actor *domain.Actor
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteActorRepo(tx)
		a, err := repo.Get(ctx, id)
		switch {
		case err == nil:
			if displayName == "" || a.DisplayName == displayName {
				actor = a
				return nil
			}
			a.DisplayName = displayName
		case isNotFound(err):
			a = &domain.Actor{ID: id, DisplayName: displayName, CreatedAt: s.now()}
		default:
			return err
		}
		actor = a
		return repo.Save(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("registering actor %q: %w", id, err)
	}
	return actor, nil
}

func (s *actorService) List(ctx context.Context) ([]*domain.Actor, error) {
	return s.actors.List(ctx)
}

func (s *actorService) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Actor, error) {
	return s.actors.ListByRole(ctx, role)
}

func (s *actorService) GrantRole(ctx context.Context, id string, role domain.Role) (bool, error) {
	return s.updateRoles(ctx, id, role, (*domain.Actor).AddRole)
}

func (s *actorService) RevokeRole(ctx context.Context, id string, role domain.Role) (bool, error) {
	return s.updateRoles(ctx, id, role, (*domain.Actor).RemoveRole)
}

func (s *actorService) updateRoles(ctx context.Context, id string, role domain.Role, apply func(*domain.Actor, domain.Role) bool) (bool, error) {
	if err := s.validateRole(role); err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	var changed bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteActorRepo(tx)
		a, err := repo.Get(ctx, id)
		if isNotFound(err) {
			a = &domain.Actor{ID: id, CreatedAt: s.now()}
		} else if err != nil {
			return err
		}
		changed = apply(a, role)
		if !changed {
			return nil
		}
		return repo.Save(ctx, a)
	})
	if err != nil {
		return false, fmt.Errorf("updating roles of %q: %w", id, err)
	}
	return changed, nil
}

func (s *actorService) validateRole(role domain.Role) error {
	if role == domain.RoleCoordinator || s.graph.Has(domain.Stage(role)) {
		return nil
	}
	return fmt.Errorf("%w: %q", app.ErrUnknownRole, role)
}

func (s *actorService) History(ctx context.Context, id string, limit int) ([]*domain.TaskEvent, error) {
	return s.events.ListByActor(ctx, strings.TrimSpace(id), limit)
}
