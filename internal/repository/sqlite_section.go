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

// SQLiteSectionRepo implements SectionRepo using a SQLite database.
type SQLiteSectionRepo struct {
	db db.DBTX
}

// NewSQLiteSectionRepo creates a new SQLiteSectionRepo.
func NewSQLiteSectionRepo(conn db.DBTX) *SQLiteSectionRepo {
	return &SQLiteSectionRepo{db: conn}
}

func (r *SQLiteSectionRepo) Get(ctx context.Context, title string) (*domain.Section, error) {
	var createdAt string
	err := r.db.QueryRowContext(ctx, `SELECT created_at FROM sections WHERE title = ?`, title).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("section %q: %w", title, ErrNotFound)
		}
		return nil, fmt.Errorf("loading section: %w", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing section created_at: %w", err)
	}

	chapters, err := r.chapters(ctx, title)
	if err != nil {
		return nil, err
	}
	return &domain.Section{Title: title, Chapters: chapters, CreatedAt: created}, nil
}

func (r *SQLiteSectionRepo) List(ctx context.Context) ([]*domain.Section, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT title, created_at FROM sections ORDER BY created_at, title`)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	var sections []*domain.Section
	for rows.Next() {
		var s domain.Section
		var createdAt string
		if err := rows.Scan(&s.Title, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing section created_at: %w", err)
		}
		sections = append(sections, &s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before the per-section queries; a single-connection pool would
	// otherwise block on them.
	rows.Close()

	for _, s := range sections {
		if s.Chapters, err = r.chapters(ctx, s.Title); err != nil {
			return nil, err
		}
	}
	return sections, nil
}

func (r *SQLiteSectionRepo) Append(ctx context.Context, title string, chapters []string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sections (title, created_at) VALUES (?, ?)`,
		title, formatTime(at),
	); err != nil {
		return fmt.Errorf("creating section %q: %w", title, err)
	}
	if len(chapters) == 0 {
		return nil
	}

	var last int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM section_chapters WHERE title = ?`, title,
	).Scan(&last); err != nil {
		return fmt.Errorf("reading section position: %w", err)
	}

	for i, ch := range chapters {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO section_chapters (title, chapter, position) VALUES (?, ?, ?)`,
			title, ch, last+i+1,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("section %q chapter %s: %w", title, ch, ErrDuplicate)
			}
			return fmt.Errorf("admitting chapter %s: %w", ch, err)
		}
	}
	return nil
}

func (r *SQLiteSectionRepo) chapters(ctx context.Context, title string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chapter FROM section_chapters WHERE title = ? ORDER BY position`, title)
	if err != nil {
		return nil, fmt.Errorf("listing section chapters: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("scanning section chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
