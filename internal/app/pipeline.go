package app

import "github.com/alexanderramin/scanflow/internal/domain"

// IntakeRequest registers chapters of a title and starts their pipeline at
// EntryStage.
type IntakeRequest struct {
	Title       string
	RawChapters string
	EntryStage  domain.Stage
	Actor       string
}

// IntakeResult reports which chapters were admitted and the tasks created
// for them.
type IntakeResult struct {
	// Title is the normalised title the chapters were registered under.
	Title             string
	CreatedChapters   []string
	DuplicateChapters []string
	RejectedTokens    []string
	Tasks             []*domain.Task
}

// AdvanceRequest reports one chapter's stage as finished.
type AdvanceRequest struct {
	Title   string
	Chapter string
	Stage   domain.Stage
	Actor   string
}

// AdvanceOutcome says whether an advance found a task to complete.
type AdvanceOutcome string

const (
	OutcomeAdvanced       AdvanceOutcome = "advanced"
	OutcomeNoMatchingTask AdvanceOutcome = "no_matching_task"
)

// AdvanceResult describes what completing one (title, chapter, stage) did.
type AdvanceResult struct {
	Title     string
	Chapter   string
	Stage     domain.Stage
	Outcome   AdvanceOutcome
	Completed *domain.Task
	// Created holds successor tasks created by this completion.
	Created []*domain.Task
	// WaitingOn names the join partner that is not done yet.
	WaitingOn domain.Stage
	// Archived is true when this completion added a new archive entry.
	Archived bool
}

func (r *AdvanceResult) Advanced() bool {
	return r.Outcome == OutcomeAdvanced
}

// BatchAdvanceRequest finishes a stage for every chapter in RawChapters.
type BatchAdvanceRequest struct {
	Title       string
	RawChapters string
	Stage       domain.Stage
	Actor       string
}

// BatchAdvanceResult collects the per-chapter results of one batch.
type BatchAdvanceResult struct {
	Title          string
	Stage          domain.Stage
	Results        []AdvanceResult
	Completed      []string
	Unmatched      []string
	RejectedTokens []string
}

// ActiveGroup lists the chapters of one title that have an active task at
// the queried stage.
type ActiveGroup struct {
	Title    string
	Chapters []string
}

// StageActive is the active work of one stage, used for per-actor views.
type StageActive struct {
	Stage  domain.Stage
	Groups []ActiveGroup
}

// ChapterView is the full state of one chapter.
type ChapterView struct {
	Title    string
	Chapter  string
	Tasks    []*domain.Task
	Events   []*domain.TaskEvent
	Archived bool
}

// TitleProgress summarises a title for reports.
type TitleProgress struct {
	Title    string
	Admitted int
	Active   map[domain.Stage]int
	Done     map[domain.Stage]int
	Archived int
}
