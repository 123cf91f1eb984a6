package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/chapters"
	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

type pipelineService struct {
	graph    *stagegraph.Graph
	tasks    repository.TaskRepo
	events   repository.EventRepo
	archive  repository.ArchiveRepo
	uow      db.UnitOfWork
	locks    *titleLocks
	now      func() time.Time
	lang     language.Tag
	observer UseCaseObserver
}

// PipelineOption customises a PipelineService.
type PipelineOption func(*pipelineService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(s *pipelineService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCollation sets the language whose rules order titles in listings.
func WithCollation(lang language.Tag) PipelineOption {
	return func(s *pipelineService) {
		s.lang = lang
	}
}

// WithObserver reports every intake and advance to observer.
func WithObserver(observer UseCaseObserver) PipelineOption {
	return func(s *pipelineService) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// NewPipelineService builds the pipeline over graph. The repos serve reads;
// writes use repos bound to a uow transaction.
func NewPipelineService(
	graph *stagegraph.Graph,
	tasks repository.TaskRepo,
	events repository.EventRepo,
	archive repository.ArchiveRepo,
	uow db.UnitOfWork,
	opts ...PipelineOption,
) PipelineService {
	s := &pipelineService{
		graph:    graph,
		tasks:    tasks,
		events:   events,
		archive:  archive,
		uow:      uow,
		locks:    newTitleLocks(),
		now:      utcNow,
		lang:     language.Und,
		observer: NoopUseCaseObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pipelineTx bundles the repositories bound to one transaction.
type pipelineTx struct {
	tasks    repository.TaskRepo
	seq      repository.SequenceRepo
	sections repository.SectionRepo
	archive  repository.ArchiveRepo
	events   repository.EventRepo
}

func newPipelineTx(tx db.DBTX) pipelineTx {
	return pipelineTx{
		tasks:    repository.NewSQLiteTaskRepo(tx),
		seq:      repository.NewSQLiteSequenceRepo(tx),
		sections: repository.NewSQLiteSectionRepo(tx),
		archive:  repository.NewSQLiteArchiveRepo(tx),
		events:   repository.NewSQLiteEventRepo(tx),
	}
}

func (s *pipelineService) observe(ctx context.Context, event UseCaseEvent, startedAt time.Time, err error) {
	event.Duration = time.Since(startedAt)
	event.Err = err
	s.observer.ObserveUseCase(ctx, event)
}

func (s *pipelineService) Intake(ctx context.Context, req app.IntakeRequest) (res *app.IntakeResult, err error) {
	startedAt := time.Now()
	event := UseCaseEvent{Name: "intake", Title: req.Title, Stage: req.EntryStage, Actor: req.Actor, Fields: map[string]any{}}
	defer func() { s.observe(ctx, event, startedAt, err) }()

	title := domain.NormalizeTitle(req.Title)
	if title == "" {
		return nil, app.ErrEmptyTitle
	}
	forks, ok := s.graph.EntryForks(req.EntryStage)
	if !ok {
		return nil, fmt.Errorf("%w: %q", app.ErrInvalidEntryStage, req.EntryStage)
	}
	parsed := chapters.Normalize(req.RawChapters)

	unlock := s.locks.Lock(title)
	defer unlock()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newPipelineTx(tx)
		res = &app.IntakeResult{Title: title, RejectedTokens: parsed.Rejected}

		var existing []string
		section, err := r.sections.Get(ctx, title)
		switch {
		case err == nil:
			existing = section.Chapters
		case !isNotFound(err):
			return err
		}

		res.CreatedChapters, res.DuplicateChapters = domain.PartitionChapters(existing, parsed.IDs)
		if len(res.CreatedChapters) == 0 {
			return nil
		}

		now := s.now()
		if err := r.sections.Append(ctx, title, res.CreatedChapters, now); err != nil {
			return err
		}
		for _, ch := range res.CreatedChapters {
			for _, stage := range forks {
				task, err := s.createTask(ctx, r, domain.TaskKey{Title: title, Chapter: ch, Stage: stage}, req.Actor, now)
				if err != nil {
					return err
				}
				if task != nil {
					res.Tasks = append(res.Tasks, task)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("intake %q: %w", title, err)
	}

	event.Fields["created"] = len(res.CreatedChapters)
	event.Fields["duplicates"] = len(res.DuplicateChapters)
	event.Fields["rejected"] = len(res.RejectedTokens)
	event.Fields["tasks"] = len(res.Tasks)
	return res, nil
}

func (s *pipelineService) Advance(ctx context.Context, req app.AdvanceRequest) (res *app.AdvanceResult, err error) {
	startedAt := time.Now()
	event := UseCaseEvent{Name: "advance", Title: req.Title, Stage: req.Stage, Actor: req.Actor,
		Fields: map[string]any{"chapter": req.Chapter}}
	defer func() { s.observe(ctx, event, startedAt, err) }()

	title := domain.NormalizeTitle(req.Title)
	if title == "" {
		return nil, app.ErrEmptyTitle
	}
	if !s.graph.Has(req.Stage) {
		return nil, fmt.Errorf("%w: %q", app.ErrUnknownStage, req.Stage)
	}
	chapter, err := canonicalChapter(req.Chapter)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(title)
	defer unlock()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		out, err := s.advanceTx(ctx, newPipelineTx(tx), title, chapter, req.Stage, req.Actor)
		res = out
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("advance %s/%s/%s: %w", title, chapter, req.Stage, err)
	}

	event.Fields["outcome"] = string(res.Outcome)
	event.Fields["created"] = len(res.Created)
	event.Fields["archived"] = res.Archived
	return res, nil
}

func (s *pipelineService) AdvanceBatch(ctx context.Context, req app.BatchAdvanceRequest) (res *app.BatchAdvanceResult, err error) {
	startedAt := time.Now()
	event := UseCaseEvent{Name: "advance-batch", Title: req.Title, Stage: req.Stage, Actor: req.Actor,
		Fields: map[string]any{"chapters": req.RawChapters}}
	defer func() { s.observe(ctx, event, startedAt, err) }()

	title := domain.NormalizeTitle(req.Title)
	if title == "" {
		return nil, app.ErrEmptyTitle
	}
	if !s.graph.Has(req.Stage) {
		return nil, fmt.Errorf("%w: %q", app.ErrUnknownStage, req.Stage)
	}
	parsed := chapters.Normalize(req.RawChapters)
	ids := dedupe(parsed.IDs)

	unlock := s.locks.Lock(title)
	defer unlock()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newPipelineTx(tx)
		res = &app.BatchAdvanceResult{Title: title, Stage: req.Stage, RejectedTokens: parsed.Rejected}
		for _, ch := range ids {
			out, err := s.advanceTx(ctx, r, title, ch, req.Stage, req.Actor)
			if err != nil {
				return err
			}
			res.Results = append(res.Results, *out)
			if out.Advanced() {
				res.Completed = append(res.Completed, ch)
			} else {
				res.Unmatched = append(res.Unmatched, ch)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("advance %s/%s: %w", title, req.Stage, err)
	}

	event.Fields["completed"] = len(res.Completed)
	event.Fields["unmatched"] = len(res.Unmatched)
	return res, nil
}

// advanceTx completes the active (title, chapter, stage) task and applies
// the graph's successor rule. A missing or already-done task is a no-op.
func (s *pipelineService) advanceTx(ctx context.Context, r pipelineTx, title, chapter string, stage domain.Stage, actor string) (*app.AdvanceResult, error) {
	res := &app.AdvanceResult{Title: title, Chapter: chapter, Stage: stage, Outcome: app.OutcomeNoMatchingTask}

	task, err := r.tasks.Find(ctx, domain.TaskKey{Title: title, Chapter: chapter, Stage: stage})
	if isNotFound(err) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	if !task.IsActive() {
		return res, nil
	}

	now := s.now()
	done, err := r.tasks.MarkDone(ctx, task.ID, now)
	if err != nil {
		return nil, err
	}
	if !done {
		return res, nil
	}
	task.MarkDone(now)
	res.Outcome = app.OutcomeAdvanced
	res.Completed = task
	if err := s.appendEvent(ctx, r, task, domain.EventCompleted, actor, now); err != nil {
		return nil, err
	}

	if s.graph.IsTerminal(stage) {
		added, err := r.archive.Add(ctx, title, chapter, now)
		if err != nil {
			return nil, err
		}
		res.Archived = added
		if added {
			if err := s.appendEvent(ctx, r, task, domain.EventArchived, actor, now); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	next, ok := s.graph.SuccessorOf(stage)
	if !ok {
		return res, nil
	}
	if partner, isJoin := s.graph.JoinPartner(stage); isJoin {
		other, err := r.tasks.Find(ctx, domain.TaskKey{Title: title, Chapter: chapter, Stage: partner})
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if other == nil || other.Status != domain.TaskDone {
			res.WaitingOn = partner
			return res, nil
		}
	}

	created, err := s.createTask(ctx, r, domain.TaskKey{Title: title, Chapter: chapter, Stage: next}, actor, now)
	if err != nil {
		return nil, err
	}
	if created != nil {
		res.Created = append(res.Created, created)
	}
	return res, nil
}

// createTask inserts an active task for key unless one already exists, in
// which case it returns nil.
func (s *pipelineService) createTask(ctx context.Context, r pipelineTx, key domain.TaskKey, actor string, now time.Time) (*domain.Task, error) {
	if _, err := r.tasks.Find(ctx, key); err == nil {
		return nil, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	id, err := r.seq.NextTaskID(ctx)
	if err != nil {
		return nil, err
	}
	task := &domain.Task{
		ID:        id,
		Title:     key.Title,
		Chapter:   key.Chapter,
		Stage:     key.Stage,
		Status:    domain.TaskActive,
		CreatedAt: now,
	}
	if err := r.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := s.appendEvent(ctx, r, task, domain.EventCreated, actor, now); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *pipelineService) appendEvent(ctx context.Context, r pipelineTx, task *domain.Task, kind domain.EventKind, actor string, now time.Time) error {
	return r.events.Append(ctx, &domain.TaskEvent{
		ID:      uuid.NewString(),
		TaskID:  task.ID,
		Kind:    kind,
		Title:   task.Title,
		Chapter: task.Chapter,
		Stage:   task.Stage,
		Actor:   actor,
		At:      now,
	})
}

func (s *pipelineService) QueryActive(ctx context.Context, stage domain.Stage) ([]app.ActiveGroup, error) {
	if !s.graph.Has(stage) {
		return nil, fmt.Errorf("%w: %q", app.ErrUnknownStage, stage)
	}
	tasks, err := s.tasks.ListActive(ctx, stage)
	if err != nil {
		return nil, err
	}
	return groupActive(tasks, s.lang), nil
}

func (s *pipelineService) ActiveTitles(ctx context.Context, stage domain.Stage) ([]string, error) {
	groups, err := s.QueryActive(ctx, stage)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(groups))
	for i, g := range groups {
		titles[i] = g.Title
	}
	return titles, nil
}

// ActiveForStages returns the active work of each stage in order, skipping
// stages with nothing active.
func (s *pipelineService) ActiveForStages(ctx context.Context, stages []domain.Stage) ([]app.StageActive, error) {
	var out []app.StageActive
	for _, stage := range stages {
		groups, err := s.QueryActive(ctx, stage)
		if err != nil {
			return nil, err
		}
		if len(groups) > 0 {
			out = append(out, app.StageActive{Stage: stage, Groups: groups})
		}
	}
	return out, nil
}

func (s *pipelineService) Chapter(ctx context.Context, title, chapter string) (*app.ChapterView, error) {
	title = domain.NormalizeTitle(title)
	if title == "" {
		return nil, app.ErrEmptyTitle
	}
	ch, err := canonicalChapter(chapter)
	if err != nil {
		return nil, err
	}

	view := &app.ChapterView{Title: title, Chapter: ch}
	if view.Tasks, err = s.tasks.ListByChapter(ctx, title, ch); err != nil {
		return nil, err
	}
	if view.Events, err = s.events.ListByChapter(ctx, title, ch); err != nil {
		return nil, err
	}
	if view.Archived, err = s.archive.Contains(ctx, title, ch); err != nil {
		return nil, err
	}
	return view, nil
}
