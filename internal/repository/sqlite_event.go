package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
)

const eventColumns = `id, task_id, kind, title, chapter, stage, actor, at`

// SQLiteEventRepo implements EventRepo using a SQLite database.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(conn db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: conn}
}

func (r *SQLiteEventRepo) Append(ctx context.Context, e *domain.TaskEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, string(e.Kind), e.Title, e.Chapter, string(e.Stage), e.Actor, formatTime(e.At),
	)
	if err != nil {
		return fmt.Errorf("appending %s event for task %d: %w", e.Kind, e.TaskID, err)
	}
	return nil
}

func (r *SQLiteEventRepo) ListByChapter(ctx context.Context, title, chapter string) ([]*domain.TaskEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM task_events WHERE title = ? AND chapter = ? ORDER BY at, rowid`,
		title, chapter)
	if err != nil {
		return nil, fmt.Errorf("listing chapter events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByActor returns the most recent events recorded for actor, newest
// first. A non-positive limit returns all of them.
func (r *SQLiteEventRepo) ListByActor(ctx context.Context, actor string, limit int) ([]*domain.TaskEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM task_events WHERE actor = ? ORDER BY at DESC, rowid DESC`
	args := []any{actor}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing actor events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*domain.TaskEvent, error) {
	var out []*domain.TaskEvent
	for rows.Next() {
		var e domain.TaskEvent
		var kind, stage, at string
		if err := rows.Scan(&e.ID, &e.TaskID, &kind, &e.Title, &e.Chapter, &stage, &e.Actor, &at); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.Stage = domain.Stage(stage)
		parsed, err := parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("parsing event time: %w", err)
		}
		e.At = parsed
		out = append(out, &e)
	}
	return out, rows.Err()
}
