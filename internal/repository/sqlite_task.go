package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
)

const taskColumns = `id, title, chapter, stage, status, created_at, completed_at`

// SQLiteTaskRepo implements TaskRepo using a SQLite database.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo.
func NewSQLiteTaskRepo(conn db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	if t.ID <= 0 {
		return fmt.Errorf("inserting task: id must be allocated before insert")
	}
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Title,
		t.Chapter,
		string(t.Stage),
		string(t.Status),
		formatTime(t.CreatedAt),
		nullableTimeToString(t.CompletedAt, timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("task %s/%s/%s: %w", t.Title, t.Chapter, t.Stage, ErrDuplicate)
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	return scanTask(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteTaskRepo) Find(ctx context.Context, key domain.TaskKey) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE title = ? AND chapter = ? AND stage = ?`
	return scanTask(r.db.QueryRowContext(ctx, query, key.Title, key.Chapter, string(key.Stage)))
}

func (r *SQLiteTaskRepo) ListByChapter(ctx context.Context, title, chapter string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE title = ? AND chapter = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, title, chapter)
	if err != nil {
		return nil, fmt.Errorf("listing tasks by chapter: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListByTitle(ctx context.Context, title string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE title = ? ORDER BY chapter, id`
	rows, err := r.db.QueryContext(ctx, query, title)
	if err != nil {
		return nil, fmt.Errorf("listing tasks by title: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListActive(ctx context.Context, stages ...domain.Stage) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = 'active'`
	args := make([]any, 0, len(stages))
	if len(stages) > 0 {
		query += ` AND stage IN (` + placeholders(len(stages)) + `)`
		for _, s := range stages {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY title, chapter, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing active tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) MarkDone(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `UPDATE tasks SET status = 'done', completed_at = ? WHERE id = ? AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("completing task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("completing task %d: %w", id, err)
	}
	return n == 1, nil
}

func (r *SQLiteTaskRepo) StageCounts(ctx context.Context) ([]StageCount, error) {
	query := `SELECT title, stage, status, COUNT(*) FROM tasks
		GROUP BY title, stage, status
		ORDER BY title, stage, status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	defer rows.Close()

	var out []StageCount
	for rows.Next() {
		var c StageCount
		var stage, status string
		if err := rows.Scan(&c.Title, &stage, &status, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning task count: %w", err)
		}
		c.Stage = domain.Stage(stage)
		c.Status = domain.TaskStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(s rowScanner) (*domain.Task, error) {
	var t domain.Task
	var stage, status, createdAt string
	var completedAt sql.NullString
	if err := s.Scan(&t.ID, &t.Title, &t.Chapter, &stage, &status, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	t.Stage = domain.Stage(stage)
	t.Status = domain.TaskStatus(status)
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing task created_at: %w", err)
	}
	t.CreatedAt = created
	t.CompletedAt = parseNullableTime(completedAt, timeLayout)
	return &t, nil
}

func scanTask(row *sql.Row) (*domain.Task, error) {
	t, err := scanTaskRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
