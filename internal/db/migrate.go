package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateSeedTaskSequence(db); err != nil {
		return fmt.Errorf("seeding task sequence: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id           INTEGER PRIMARY KEY,
		title        TEXT NOT NULL,
		chapter      TEXT NOT NULL,
		stage        TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'active'
		             CHECK(status IN ('active','done')),
		created_at   TEXT NOT NULL,
		completed_at TEXT,
		UNIQUE (title, chapter, stage)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_stage_status ON tasks(stage, status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_title_chapter ON tasks(title, chapter)`,

	`CREATE TABLE IF NOT EXISTS task_sequence (
		id      INTEGER PRIMARY KEY CHECK(id = 1),
		next_id INTEGER NOT NULL CHECK(next_id > 0)
	)`,

	`CREATE TABLE IF NOT EXISTS sections (
		title      TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS section_chapters (
		title    TEXT NOT NULL REFERENCES sections(title) ON DELETE CASCADE,
		chapter  TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (title, chapter)
	)`,

	`CREATE TABLE IF NOT EXISTS archive_entries (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		chapter     TEXT NOT NULL,
		archived_at TEXT NOT NULL,
		UNIQUE (title, chapter)
	)`,

	`CREATE TABLE IF NOT EXISTS actors (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS actor_roles (
		actor_id TEXT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		role     TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (actor_id, role)
	)`,

	`CREATE TABLE IF NOT EXISTS task_events (
		id      TEXT PRIMARY KEY,
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		kind    TEXT NOT NULL CHECK(kind IN ('created','completed','archived')),
		title   TEXT NOT NULL,
		chapter TEXT NOT NULL,
		stage   TEXT NOT NULL,
		actor   TEXT NOT NULL DEFAULT '',
		at      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_events_chapter ON task_events(title, chapter)`,

	// Display names captured from the chat front end.
	`ALTER TABLE actors ADD COLUMN display_name TEXT NOT NULL DEFAULT ''`,
}

// migrateSeedTaskSequence creates the single task_sequence row, or raises it
// above the highest task id already stored (e.g. after a legacy import).
func migrateSeedTaskSequence(db *sql.DB) error {
	ctx := context.Background()
	query := `INSERT INTO task_sequence (id, next_id)
		SELECT 1, COALESCE(MAX(id), 0) + 1 FROM tasks
		WHERE true
		ON CONFLICT(id) DO UPDATE
		SET next_id = MAX(task_sequence.next_id, excluded.next_id)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("upserting task sequence row: %w", err)
	}
	return nil
}
