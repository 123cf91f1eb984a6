package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
)

// SQLiteActorRepo implements ActorRepo using a SQLite database.
type SQLiteActorRepo struct {
	db db.DBTX
}

// NewSQLiteActorRepo creates a new SQLiteActorRepo.
func NewSQLiteActorRepo(conn db.DBTX) *SQLiteActorRepo {
	return &SQLiteActorRepo{db: conn}
}

func (r *SQLiteActorRepo) Get(ctx context.Context, id string) (*domain.Actor, error) {
	var a domain.Actor
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at FROM actors WHERE id = ?`, id,
	).Scan(&a.ID, &a.DisplayName, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("actor %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading actor: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing actor created_at: %w", err)
	}
	roles, err := r.roles(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Roles = roles
	return &a, nil
}

func (r *SQLiteActorRepo) List(ctx context.Context) ([]*domain.Actor, error) {
	return r.list(ctx, `SELECT id, display_name, created_at FROM actors ORDER BY created_at, id`)
}

func (r *SQLiteActorRepo) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Actor, error) {
	return r.list(ctx, `SELECT a.id, a.display_name, a.created_at FROM actors a
		JOIN actor_roles ar ON ar.actor_id = a.id
		WHERE ar.role = ?
		ORDER BY a.created_at, a.id`, string(role))
}

func (r *SQLiteActorRepo) Save(ctx context.Context, a *domain.Actor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actors (id, display_name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name`,
		a.ID, a.DisplayName, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving actor %q: %w", a.ID, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM actor_roles WHERE actor_id = ?`, a.ID); err != nil {
		return fmt.Errorf("clearing roles of %q: %w", a.ID, err)
	}
	for i, role := range a.Roles {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO actor_roles (actor_id, role, position) VALUES (?, ?, ?)`,
			a.ID, string(role), i,
		); err != nil {
			return fmt.Errorf("saving role %s of %q: %w", role, a.ID, err)
		}
	}
	return nil
}

func (r *SQLiteActorRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Actor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing actors: %w", err)
	}
	var actors []*domain.Actor
	for rows.Next() {
		var a domain.Actor
		var createdAt string
		if err := rows.Scan(&a.ID, &a.DisplayName, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning actor: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing actor created_at: %w", err)
		}
		actors = append(actors, &a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, a := range actors {
		if a.Roles, err = r.roles(ctx, a.ID); err != nil {
			return nil, err
		}
	}
	return actors, nil
}

func (r *SQLiteActorRepo) roles(ctx context.Context, actorID string) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role FROM actor_roles WHERE actor_id = ? ORDER BY position`, actorID)
	if err != nil {
		return nil, fmt.Errorf("listing roles of %q: %w", actorID, err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, domain.Role(role))
	}
	return roles, rows.Err()
}
