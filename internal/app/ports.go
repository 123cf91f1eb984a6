package app

import (
	"context"

	"github.com/alexanderramin/scanflow/internal/domain"
)

// IntakeUseCase admits new chapters of a title into the pipeline.
type IntakeUseCase interface {
	Intake(ctx context.Context, req IntakeRequest) (*IntakeResult, error)
}

// AdvanceUseCase completes tasks and creates their successors.
type AdvanceUseCase interface {
	Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error)
	AdvanceBatch(ctx context.Context, req BatchAdvanceRequest) (*BatchAdvanceResult, error)
}

// QueryActiveUseCase lists active work for one stage.
type QueryActiveUseCase interface {
	QueryActive(ctx context.Context, stage domain.Stage) ([]ActiveGroup, error)
	ActiveTitles(ctx context.Context, stage domain.Stage) ([]string, error)
}

// ImportResult holds the outcome of a legacy data import.
type ImportResult struct {
	Sections     int
	Chapters     int
	Tasks        int
	SkippedTasks int
	// RenumberedTasks counts imported tasks whose legacy id was taken.
	RenumberedTasks int
	ArchiveEntries  int
	Actors          int
}
