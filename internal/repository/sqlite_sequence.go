package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/scanflow/internal/db"
)

// SQLiteSequenceRepo allocates task ids atomically using the single-row
// task_sequence table.
type SQLiteSequenceRepo struct {
	db db.DBTX
}

// NewSQLiteSequenceRepo creates a new SQLiteSequenceRepo.
func NewSQLiteSequenceRepo(conn db.DBTX) *SQLiteSequenceRepo {
	return &SQLiteSequenceRepo{db: conn}
}

// NextTaskID returns the next unused task id. Ids are never reused.
func (r *SQLiteSequenceRepo) NextTaskID(ctx context.Context) (int64, error) {
	seedQuery := `INSERT OR IGNORE INTO task_sequence (id, next_id)
		SELECT 1, COALESCE(MAX(id), 0) + 1 FROM tasks`
	if _, err := r.db.ExecContext(ctx, seedQuery); err != nil {
		return 0, fmt.Errorf("seeding task sequence: %w", err)
	}

	var next int64
	allocQuery := `UPDATE task_sequence
		SET next_id = next_id + 1
		WHERE id = 1
		RETURNING next_id - 1`
	if err := r.db.QueryRowContext(ctx, allocQuery).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocating task id: %w", err)
	}
	return next, nil
}

func (r *SQLiteSequenceRepo) Reseed(ctx context.Context) error {
	query := `INSERT INTO task_sequence (id, next_id)
		SELECT 1, COALESCE(MAX(id), 0) + 1 FROM tasks
		WHERE true
		ON CONFLICT(id) DO UPDATE
		SET next_id = MAX(task_sequence.next_id, excluded.next_id)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("reseeding task sequence: %w", err)
	}
	return nil
}
