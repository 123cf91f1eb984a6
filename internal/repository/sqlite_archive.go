package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
)

// SQLiteArchiveRepo implements ArchiveRepo using a SQLite database.
type SQLiteArchiveRepo struct {
	db db.DBTX
}

// NewSQLiteArchiveRepo creates a new SQLiteArchiveRepo.
func NewSQLiteArchiveRepo(conn db.DBTX) *SQLiteArchiveRepo {
	return &SQLiteArchiveRepo{db: conn}
}

func (r *SQLiteArchiveRepo) Add(ctx context.Context, title, chapter string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO archive_entries (title, chapter, archived_at) VALUES (?, ?, ?)`,
		title, chapter, formatTime(at),
	)
	if err != nil {
		return false, fmt.Errorf("archiving %s/%s: %w", title, chapter, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archiving %s/%s: %w", title, chapter, err)
	}
	return n == 1, nil
}

func (r *SQLiteArchiveRepo) Contains(ctx context.Context, title, chapter string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM archive_entries WHERE title = ? AND chapter = ?`, title, chapter,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking archive: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteArchiveRepo) ListByTitle(ctx context.Context, title string) ([]domain.ArchiveEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title, chapter, archived_at FROM archive_entries WHERE title = ? ORDER BY seq`, title)
	if err != nil {
		return nil, fmt.Errorf("listing archive for %q: %w", title, err)
	}
	defer rows.Close()
	return scanArchiveEntries(rows)
}

func (r *SQLiteArchiveRepo) List(ctx context.Context) ([]domain.ArchiveEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title, chapter, archived_at FROM archive_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	defer rows.Close()
	return scanArchiveEntries(rows)
}

// Titles returns archived titles in order of their first archived chapter.
func (r *SQLiteArchiveRepo) Titles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title FROM archive_entries GROUP BY title ORDER BY MIN(seq)`)
	if err != nil {
		return nil, fmt.Errorf("listing archived titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning archived title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func scanArchiveEntries(rows *sql.Rows) ([]domain.ArchiveEntry, error) {
	var out []domain.ArchiveEntry
	for rows.Next() {
		var e domain.ArchiveEntry
		var at string
		if err := rows.Scan(&e.Title, &e.Chapter, &at); err != nil {
			return nil, fmt.Errorf("scanning archive entry: %w", err)
		}
		parsed, err := parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("parsing archived_at: %w", err)
		}
		e.ArchivedAt = parsed
		out = append(out, e)
	}
	return out, rows.Err()
}
