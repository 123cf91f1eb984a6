package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/importer"
	"github.com/alexanderramin/scanflow/internal/repository"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

type importService struct {
	graph *stagegraph.Graph
	uow   db.UnitOfWork
	now   func() time.Time
}

func NewImportService(graph *stagegraph.Graph, uow db.UnitOfWork) ImportService {
	return &importService{graph: graph, uow: uow, now: utcNow}
}

func (s *importService) ImportLegacyDir(ctx context.Context, dir string) (*app.ImportResult, error) {
	bundle, err := importer.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading legacy data: %w", err)
	}
	return s.ImportLegacy(ctx, bundle)
}

// ImportLegacy writes a legacy bundle in one transaction. A task whose
// (title, chapter, stage) already exists is skipped, so re-running an import
// is harmless. Other tasks keep their legacy id when it is free and get a
// fresh one from the sequence when it is not.
func (s *importService) ImportLegacy(ctx context.Context, bundle *importer.LegacyBundle) (*app.ImportResult, error) {
	if errs := importer.ValidateBundle(bundle, s.graph); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	plan, err := importer.Convert(bundle, s.graph, s.now())
	if err != nil {
		return nil, fmt.Errorf("converting legacy data: %w", err)
	}

	var res *app.ImportResult
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		res = &app.ImportResult{SkippedTasks: plan.SkippedTasks}
		sections := repository.NewSQLiteSectionRepo(tx)
		tasks := repository.NewSQLiteTaskRepo(tx)
		archive := repository.NewSQLiteArchiveRepo(tx)
		actors := repository.NewSQLiteActorRepo(tx)

		for _, sec := range plan.Sections {
			var existing []string
			current, err := sections.Get(ctx, sec.Title)
			switch {
			case err == nil:
				existing = current.Chapters
			case !isNotFound(err):
				return err
			}
			added, _ := domain.PartitionChapters(existing, sec.Chapters)
			if err := sections.Append(ctx, sec.Title, added, sec.CreatedAt); err != nil {
				return err
			}
			res.Sections++
			res.Chapters += len(added)
		}

		var displaced []*domain.Task
		for _, task := range plan.Tasks {
			outcome, err := importTask(ctx, tasks, task)
			if err != nil {
				return err
			}
			switch outcome {
			case taskImported:
				res.Tasks++
			case taskExists:
				res.SkippedTasks++
			case taskIDTaken:
				displaced = append(displaced, task)
			}
		}

		// Renumber after every legacy id is placed so a fresh id cannot
		// collide with a later legacy one.
		seq := repository.NewSQLiteSequenceRepo(tx)
		if err := seq.Reseed(ctx); err != nil {
			return err
		}
		for _, task := range displaced {
			id, err := seq.NextTaskID(ctx)
			if err != nil {
				return err
			}
			task.ID = id
			if err := tasks.Create(ctx, task); err != nil {
				return err
			}
			res.Tasks++
			res.RenumberedTasks++
		}

		for _, entry := range plan.Archive {
			added, err := archive.Add(ctx, entry.Title, entry.Chapter, entry.ArchivedAt)
			if err != nil {
				return err
			}
			if added {
				res.ArchiveEntries++
			}
		}

		for _, actor := range plan.Actors {
			if err := mergeActor(ctx, actors, actor); err != nil {
				return err
			}
			res.Actors++
		}

		return seq.Reseed(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("importing legacy data: %w", err)
	}
	return res, nil
}

type taskImportOutcome int

const (
	taskImported taskImportOutcome = iota
	taskExists
	taskIDTaken
)

func importTask(ctx context.Context, tasks repository.TaskRepo, task *domain.Task) (taskImportOutcome, error) {
	if _, err := tasks.Find(ctx, task.Key()); err == nil {
		return taskExists, nil
	} else if !isNotFound(err) {
		return 0, err
	}
	if _, err := tasks.GetByID(ctx, task.ID); err == nil {
		return taskIDTaken, nil
	} else if !isNotFound(err) {
		return 0, err
	}
	if err := tasks.Create(ctx, task); err != nil {
		return 0, err
	}
	return taskImported, nil
}

// mergeActor adds the imported roles to an existing actor, or saves it.
func mergeActor(ctx context.Context, actors repository.ActorRepo, actor *domain.Actor) error {
	existing, err := actors.Get(ctx, actor.ID)
	if isNotFound(err) {
		return actors.Save(ctx, actor)
	}
	if err != nil {
		return err
	}
	changed := false
	for _, role := range actor.Roles {
		if existing.AddRole(role) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return actors.Save(ctx, existing)
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("legacy data validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
