package service

import (
	"context"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/importer"
)

// PipelineService owns every task mutation: intake creates entry tasks and
// advancement completes tasks and creates successors. Mutations of one title
// are serialised and each runs in a single transaction.
type PipelineService interface {
	app.IntakeUseCase
	app.AdvanceUseCase
	app.QueryActiveUseCase
	ActiveForStages(ctx context.Context, stages []domain.Stage) ([]app.StageActive, error)
	Chapter(ctx context.Context, title, chapter string) (*app.ChapterView, error)
}

type ArchiveService interface {
	// Record archives a chapter directly and reports whether it was new.
	Record(ctx context.Context, title, chapter string) (bool, error)
	RecordChapters(ctx context.Context, title string, chapterIDs []string) ([]string, error)
	List(ctx context.Context, title string) ([]domain.ArchiveEntry, error)
	Titles(ctx context.Context) ([]string, error)
}

type SectionService interface {
	Get(ctx context.Context, title string) (*domain.Section, error)
	List(ctx context.Context) ([]*domain.Section, error)
	Titles(ctx context.Context) ([]string, error)
}

type ActorService interface {
	Get(ctx context.Context, id string) (*domain.Actor, error)
	// Ensure returns the actor, registering it without roles when unknown.
	Ensure(ctx context.Context, id, displayName string) (*domain.Actor, error)
	List(ctx context.Context) ([]*domain.Actor, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.Actor, error)
	GrantRole(ctx context.Context, id string, role domain.Role) (bool, error)
	RevokeRole(ctx context.Context, id string, role domain.Role) (bool, error)
	History(ctx context.Context, id string, limit int) ([]*domain.TaskEvent, error)
}

type ReportService interface {
	Progress(ctx context.Context) ([]app.TitleProgress, error)
}

type ImportService interface {
	ImportLegacyDir(ctx context.Context, dir string) (*app.ImportResult, error)
	ImportLegacy(ctx context.Context, bundle *importer.LegacyBundle) (*app.ImportResult, error)
}
