package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/scanflow/internal/domain"
)

// StageCount is an aggregate row: how many tasks of a title sit in one
// (stage, status) cell.
type StageCount struct {
	Title  string
	Stage  domain.Stage
	Status domain.TaskStatus
	Count  int
}

type TaskRepo interface {
	// Create inserts t with the id already assigned. A second task for the
	// same (title, chapter, stage) fails with ErrDuplicate.
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Find(ctx context.Context, key domain.TaskKey) (*domain.Task, error)
	ListByChapter(ctx context.Context, title, chapter string) ([]*domain.Task, error)
	ListByTitle(ctx context.Context, title string) ([]*domain.Task, error)
	// ListActive returns active tasks of the given stages, or of every stage
	// when none are given, ordered by title, chapter and id.
	ListActive(ctx context.Context, stages ...domain.Stage) ([]*domain.Task, error)
	// MarkDone completes an active task. It reports false when the task was
	// not active, so concurrent completions of one task succeed only once.
	MarkDone(ctx context.Context, id int64, at time.Time) (bool, error)
	StageCounts(ctx context.Context) ([]StageCount, error)
}

type SequenceRepo interface {
	NextTaskID(ctx context.Context) (int64, error)
	// Reseed raises the allocator above the highest stored task id.
	Reseed(ctx context.Context) error
}

type SectionRepo interface {
	Get(ctx context.Context, title string) (*domain.Section, error)
	List(ctx context.Context) ([]*domain.Section, error)
	// Append creates the section if needed and appends chapters after the
	// existing ones.
	Append(ctx context.Context, title string, chapters []string, at time.Time) error
}

type ArchiveRepo interface {
	// Add records a finished chapter and reports whether it was new.
	Add(ctx context.Context, title, chapter string, at time.Time) (bool, error)
	Contains(ctx context.Context, title, chapter string) (bool, error)
	ListByTitle(ctx context.Context, title string) ([]domain.ArchiveEntry, error)
	List(ctx context.Context) ([]domain.ArchiveEntry, error)
	Titles(ctx context.Context) ([]string, error)
}

type ActorRepo interface {
	Get(ctx context.Context, id string) (*domain.Actor, error)
	List(ctx context.Context) ([]*domain.Actor, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.Actor, error)
	// Save upserts the actor and replaces its roles.
	Save(ctx context.Context, a *domain.Actor) error
}

type EventRepo interface {
	Append(ctx context.Context, e *domain.TaskEvent) error
	ListByChapter(ctx context.Context, title, chapter string) ([]*domain.TaskEvent, error)
	ListByActor(ctx context.Context, actor string, limit int) ([]*domain.TaskEvent, error)
}
