package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
	"github.com/alexanderramin/scanflow/internal/testutil"
)

type captureObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *captureObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

type pipelineFixture struct {
	db       *sql.DB
	svc      PipelineService
	tasks    *repository.SQLiteTaskRepo
	sections *repository.SQLiteSectionRepo
	archive  *repository.SQLiteArchiveRepo
	events   *repository.SQLiteEventRepo
}

func newPipelineFixture(t *testing.T, opts ...PipelineOption) *pipelineFixture {
	t.Helper()
	return newPipelineFixtureOn(t, testutil.NewTestDB(t), nil, opts...)
}

func newPipelineFixtureOn(t *testing.T, database *sql.DB, uow db.UnitOfWork, opts ...PipelineOption) *pipelineFixture {
	t.Helper()
	if uow == nil {
		uow = testutil.NewTestUoW(database)
	}
	f := &pipelineFixture{
		db:       database,
		tasks:    repository.NewSQLiteTaskRepo(database),
		sections: repository.NewSQLiteSectionRepo(database),
		archive:  repository.NewSQLiteArchiveRepo(database),
		events:   repository.NewSQLiteEventRepo(database),
	}
	opts = append([]PipelineOption{WithClock(func() time.Time { return testutil.FixedNow })}, opts...)
	f.svc = NewPipelineService(stagegraph.Default(), f.tasks, f.events, f.archive, uow, opts...)
	return f
}

func (f *pipelineFixture) intake(t *testing.T, title, raw string, stage domain.Stage) *app.IntakeResult {
	t.Helper()
	res, err := f.svc.Intake(context.Background(), app.IntakeRequest{Title: title, RawChapters: raw, EntryStage: stage, Actor: "coord"})
	require.NoError(t, err)
	return res
}

func (f *pipelineFixture) advance(t *testing.T, title, chapter string, stage domain.Stage) *app.AdvanceResult {
	t.Helper()
	res, err := f.svc.Advance(context.Background(), app.AdvanceRequest{Title: title, Chapter: chapter, Stage: stage, Actor: "worker"})
	require.NoError(t, err)
	return res
}

func (f *pipelineFixture) countTasks(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n))
	return n
}

// snapshot renders every stored row, table by table, for before/after
// comparisons.
func (f *pipelineFixture) snapshot(t *testing.T) map[string][]string {
	t.Helper()
	out := map[string][]string{}
	for _, table := range []string{"tasks", "task_sequence", "sections", "section_chapters", "archive_entries", "task_events"} {
		rows, err := f.db.Query(`SELECT * FROM ` + table + ` ORDER BY 1`)
		require.NoError(t, err)
		cols, err := rows.Columns()
		require.NoError(t, err)
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			require.NoError(t, rows.Scan(ptrs...))
			out[table] = append(out[table], fmt.Sprint(vals...))
		}
		require.NoError(t, rows.Err())
		require.NoError(t, rows.Close())
	}
	return out
}

func (f *pipelineFixture) task(t *testing.T, title, chapter string, stage domain.Stage) *domain.Task {
	t.Helper()
	task, err := f.tasks.Find(context.Background(), domain.TaskKey{Title: title, Chapter: chapter, Stage: stage})
	require.NoError(t, err)
	return task
}

func (f *pipelineFixture) hasTask(t *testing.T, title, chapter string, stage domain.Stage) bool {
	t.Helper()
	_, err := f.tasks.Find(context.Background(), domain.TaskKey{Title: title, Chapter: chapter, Stage: stage})
	if err != nil {
		require.ErrorIs(t, err, repository.ErrNotFound)
		return false
	}
	return true
}

func stagesOf(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Chapter + "/" + string(task.Stage)
	}
	return out
}

func TestIntake_TranslateForksIntoClean(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.intake(t, "Solo", "1-3", domain.StageTranslate)

	assert.Equal(t, "Solo", res.Title)
	assert.Equal(t, []string{"01", "02", "03"}, res.CreatedChapters)
	assert.Empty(t, res.DuplicateChapters)
	assert.Equal(t, []string{
		"01/translate", "01/clean",
		"02/translate", "02/clean",
		"03/translate", "03/clean",
	}, stagesOf(res.Tasks))
	assert.Equal(t, 6, f.countTasks(t))

	section, err := f.sections.Get(context.Background(), "Solo")
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02", "03"}, section.Chapters)
}

func TestIntake_Idempotent(t *testing.T) {
	f := newPipelineFixture(t)

	f.intake(t, "Solo", "1,2,3", domain.StageTranslate)
	second := f.intake(t, "Solo", "1,2,3", domain.StageTranslate)

	assert.Empty(t, second.CreatedChapters)
	assert.Equal(t, []string{"01", "02", "03"}, second.DuplicateChapters)
	assert.Empty(t, second.Tasks)
	assert.Equal(t, 6, f.countTasks(t))
}

func TestIntake_PartialDuplicates(t *testing.T) {
	f := newPipelineFixture(t)

	f.intake(t, "Solo", "1-2", domain.StageTranslate)
	res := f.intake(t, "Solo", "2-4", domain.StageTranslate)

	assert.Equal(t, []string{"03", "04"}, res.CreatedChapters)
	assert.Equal(t, []string{"02"}, res.DuplicateChapters)
	assert.Equal(t, 8, f.countTasks(t))
}

func TestIntake_CleanEntryCreatesOnlyClean(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.intake(t, "Solo", "5", domain.StageClean)

	assert.Equal(t, []string{"05/clean"}, stagesOf(res.Tasks))
	assert.False(t, f.hasTask(t, "Solo", "05", domain.StageTranslate))
}

func TestIntake_WideLiteralKeepsPadding(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.intake(t, "Solo", "007-009", domain.StageClean)
	assert.Equal(t, []string{"007", "008", "009"}, res.CreatedChapters)
}

func TestIntake_InvalidEntryStage(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.Intake(context.Background(), app.IntakeRequest{Title: "Solo", RawChapters: "1", EntryStage: domain.StageEdit})
	require.ErrorIs(t, err, app.ErrInvalidEntryStage)
	assert.Equal(t, 0, f.countTasks(t))

	_, err = f.sections.Get(context.Background(), "Solo")
	require.ErrorIs(t, err, repository.ErrNotFound, "no section may be created")
}

func TestIntake_EmptyTitle(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.Intake(context.Background(), app.IntakeRequest{Title: "   ", RawChapters: "1", EntryStage: domain.StageTranslate})
	require.ErrorIs(t, err, app.ErrEmptyTitle)
}

func TestIntake_ReportsRejectedTokens(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.intake(t, "Solo", "1, x, 5-3", domain.StageTranslate)
	assert.Equal(t, []string{"01"}, res.CreatedChapters)
	assert.Equal(t, []string{"x", "5-3"}, res.RejectedTokens)
}

func TestIntake_NothingValidWritesNothing(t *testing.T) {
	f := newPipelineFixture(t)

	res := f.intake(t, "Solo", "abc", domain.StageTranslate)
	assert.Empty(t, res.CreatedChapters)
	assert.Equal(t, 0, f.countTasks(t))
	_, err := f.sections.Get(context.Background(), "Solo")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIntake_NormalizesTitle(t *testing.T) {
	f := newPipelineFixture(t)

	f.intake(t, "  Solo   Leveling ", "1", domain.StageTranslate)
	res := f.intake(t, "Solo Leveling", "1", domain.StageTranslate)

	assert.Equal(t, "Solo Leveling", res.Title)
	assert.Equal(t, []string{"01"}, res.DuplicateChapters)
}

func TestIntake_RollsBackOnFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	failing := &testutil.FailOnStatementUoW{DB: database, Match: "INSERT INTO task_events", Err: fmt.Errorf("injected event failure")}
	f := newPipelineFixtureOn(t, database, failing)

	_, err := f.svc.Intake(context.Background(), app.IntakeRequest{Title: "Solo", RawChapters: "1-3", EntryStage: domain.StageTranslate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected event failure")

	assert.Equal(t, 0, f.countTasks(t))
	_, err = f.sections.Get(context.Background(), "Solo")
	require.ErrorIs(t, err, repository.ErrNotFound, "section admission must roll back with the tasks")
}

func TestAdvance_TranslateCreatesEdit(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageTranslate)

	res := f.advance(t, "Solo", "01", domain.StageTranslate)

	assert.True(t, res.Advanced())
	require.NotNil(t, res.Completed)
	assert.Equal(t, domain.TaskDone, res.Completed.Status)
	assert.Equal(t, []string{"01/edit"}, stagesOf(res.Created))
	assert.Equal(t, domain.TaskDone, f.task(t, "Solo", "01", domain.StageTranslate).Status)
	assert.Equal(t, domain.TaskActive, f.task(t, "Solo", "01", domain.StageEdit).Status)
}

func TestAdvance_AcceptsUnpaddedChapter(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageTranslate)

	res := f.advance(t, "Solo", "1", domain.StageTranslate)
	assert.Equal(t, "01", res.Chapter)
	assert.True(t, res.Advanced())
}

func TestAdvance_JoinIsOrderIndependent(t *testing.T) {
	orders := map[string][2]domain.Stage{
		"clean first": {domain.StageClean, domain.StageEdit},
		"edit first":  {domain.StageEdit, domain.StageClean},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.intake(t, "Solo", "1", domain.StageTranslate)
			f.advance(t, "Solo", "01", domain.StageTranslate)

			first := f.advance(t, "Solo", "01", order[0])
			assert.True(t, first.Advanced())
			assert.Empty(t, first.Created)
			assert.Equal(t, order[1], first.WaitingOn)
			assert.False(t, f.hasTask(t, "Solo", "01", domain.StageTypeset))

			second := f.advance(t, "Solo", "01", order[1])
			assert.Equal(t, []string{"01/typeset"}, stagesOf(second.Created))
			assert.Empty(t, second.WaitingOn)
		})
	}
}

func TestAdvance_CleanEntryWaitsForEdit(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageClean)

	res := f.advance(t, "Solo", "01", domain.StageClean)
	assert.True(t, res.Advanced())
	assert.Equal(t, domain.StageEdit, res.WaitingOn, "a partner that never existed keeps the join waiting")
	assert.False(t, f.hasTask(t, "Solo", "01", domain.StageTypeset))
}

func TestAdvance_NoMatchIsNoop(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageTranslate)
	f.advance(t, "Solo", "01", domain.StageClean)
	before := f.snapshot(t)
	require.NotEmpty(t, before["task_events"])

	res := f.advance(t, "Solo", "99", domain.StageTranslate)
	assert.Equal(t, app.OutcomeNoMatchingTask, res.Outcome)
	assert.False(t, res.Advanced())
	assert.Nil(t, res.Completed)
	assert.Empty(t, res.Created)

	res = f.advance(t, "Solo", "01", domain.StageReview)
	assert.Equal(t, app.OutcomeNoMatchingTask, res.Outcome)
	assert.False(t, res.Archived)

	assert.Equal(t, before, f.snapshot(t))
}

func TestAdvance_CompletedTaskIsNoop(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageTranslate)
	f.advance(t, "Solo", "01", domain.StageTranslate)

	res := f.advance(t, "Solo", "01", domain.StageTranslate)
	assert.Equal(t, app.OutcomeNoMatchingTask, res.Outcome)
	assert.Equal(t, 3, f.countTasks(t), "no second edit task")
}

func TestAdvance_TerminalArchivesOnce(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.intake(t, "Solo", "1-2", domain.StageTranslate)

	for _, stage := range []domain.Stage{domain.StageTranslate, domain.StageClean, domain.StageEdit, domain.StageTypeset} {
		f.advance(t, "Solo", "01", stage)
	}
	res := f.advance(t, "Solo", "01", domain.StageReview)
	assert.True(t, res.Archived)
	assert.Empty(t, res.Created)

	again := f.advance(t, "Solo", "01", domain.StageReview)
	assert.Equal(t, app.OutcomeNoMatchingTask, again.Outcome)

	manual, err := f.archive.Add(ctx, "Solo", "01", testutil.FixedNow)
	require.NoError(t, err)
	assert.False(t, manual, "archive entry is unique per chapter")

	entries, err := f.archive.ListByTitle(ctx, "Solo")
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the finished chapter is archived")
	assert.Equal(t, "01", entries[0].Chapter)
}

func TestAdvance_Validation(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.svc.Advance(ctx, app.AdvanceRequest{Title: "Solo", Chapter: "1", Stage: "letter"})
	require.ErrorIs(t, err, app.ErrUnknownStage)

	_, err = f.svc.Advance(ctx, app.AdvanceRequest{Title: "Solo", Chapter: "1-3", Stage: domain.StageEdit})
	require.ErrorIs(t, err, app.ErrInvalidChapter)

	_, err = f.svc.Advance(ctx, app.AdvanceRequest{Title: "", Chapter: "1", Stage: domain.StageEdit})
	require.ErrorIs(t, err, app.ErrEmptyTitle)
}

func TestAdvanceBatch_PartitionsChapters(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1-3", domain.StageTranslate)

	res, err := f.svc.AdvanceBatch(context.Background(), app.BatchAdvanceRequest{
		Title: "Solo", RawChapters: "1-2, 2, 5, ?", Stage: domain.StageTranslate, Actor: "tr",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"01", "02"}, res.Completed)
	assert.Equal(t, []string{"05"}, res.Unmatched)
	assert.Equal(t, []string{"?"}, res.RejectedTokens)
	assert.Len(t, res.Results, 3)
	assert.True(t, f.hasTask(t, "Solo", "01", domain.StageEdit))
	assert.True(t, f.hasTask(t, "Solo", "02", domain.StageEdit))
	assert.False(t, f.hasTask(t, "Solo", "03", domain.StageEdit))
}

func TestAdvanceBatch_RollsBackOnFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	setup := newPipelineFixtureOn(t, database, nil)
	setup.intake(t, "Solo", "1-2", domain.StageTranslate)

	failing := &testutil.FailOnStatementUoW{DB: database, Match: "INSERT INTO tasks", Err: fmt.Errorf("injected task failure")}
	f := newPipelineFixtureOn(t, database, failing)

	_, err := f.svc.AdvanceBatch(context.Background(), app.BatchAdvanceRequest{Title: "Solo", RawChapters: "1-2", Stage: domain.StageTranslate})
	require.Error(t, err)

	assert.Equal(t, domain.TaskActive, f.task(t, "Solo", "01", domain.StageTranslate).Status)
	assert.Equal(t, domain.TaskActive, f.task(t, "Solo", "02", domain.StageTranslate).Status)
	assert.Equal(t, 4, f.countTasks(t))
}

func TestQueryActive_GroupsByCollatedTitle(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Zeta", "1", domain.StageTranslate)
	f.intake(t, "alpha", "9-11", domain.StageTranslate)
	f.intake(t, "Beta", "3", domain.StageClean)

	groups, err := f.svc.QueryActive(context.Background(), domain.StageTranslate)
	require.NoError(t, err)
	assert.Equal(t, []app.ActiveGroup{
		{Title: "alpha", Chapters: []string{"09", "10", "11"}},
		{Title: "Zeta", Chapters: []string{"01"}},
	}, groups)

	titles, err := f.svc.ActiveTitles(context.Background(), domain.StageClean)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "Beta", "Zeta"}, titles)
}

func TestQueryActive_ExcludesDoneTasks(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1-2", domain.StageTranslate)
	f.advance(t, "Solo", "01", domain.StageTranslate)

	groups, err := f.svc.QueryActive(context.Background(), domain.StageTranslate)
	require.NoError(t, err)
	assert.Equal(t, []app.ActiveGroup{{Title: "Solo", Chapters: []string{"02"}}}, groups)

	groups, err = f.svc.QueryActive(context.Background(), domain.StageReview)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestQueryActive_UnknownStage(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.svc.QueryActive(context.Background(), "letter")
	require.ErrorIs(t, err, app.ErrUnknownStage)
}

func TestActiveForStages_SkipsEmptyStages(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageTranslate)

	out, err := f.svc.ActiveForStages(context.Background(), []domain.Stage{domain.StageEdit, domain.StageClean})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.StageClean, out[0].Stage)
}

func TestChapter_ShowsTasksEventsAndArchive(t *testing.T) {
	f := newPipelineFixture(t)
	f.intake(t, "Solo", "1", domain.StageTranslate)
	f.advance(t, "Solo", "01", domain.StageTranslate)

	view, err := f.svc.Chapter(context.Background(), "Solo", "1")
	require.NoError(t, err)
	assert.Equal(t, "01", view.Chapter)
	assert.Len(t, view.Tasks, 3)
	assert.False(t, view.Archived)

	kinds := map[domain.EventKind]int{}
	for _, e := range view.Events {
		kinds[e.Kind]++
	}
	assert.Equal(t, 3, kinds[domain.EventCreated])
	assert.Equal(t, 1, kinds[domain.EventCompleted])
}

func TestPipeline_ReportsUseCases(t *testing.T) {
	obs := &captureObserver{}
	f := newPipelineFixture(t, WithObserver(obs))
	f.intake(t, "Solo", "1", domain.StageTranslate)
	f.advance(t, "Solo", "01", domain.StageTranslate)
	_, err := f.svc.Intake(context.Background(), app.IntakeRequest{Title: "Solo", RawChapters: "1", EntryStage: domain.StageEdit})
	require.Error(t, err)

	require.Len(t, obs.events, 3)
	assert.Equal(t, "intake", obs.events[0].Name)
	assert.True(t, obs.events[0].Success())
	assert.Equal(t, "Solo", obs.events[0].Title)
	assert.Equal(t, domain.StageTranslate, obs.events[0].Stage)
	assert.Equal(t, 2, obs.events[0].Fields["tasks"])
	assert.Equal(t, "advance", obs.events[1].Name)
	assert.Equal(t, "advanced", obs.events[1].Fields["outcome"])
	assert.False(t, obs.events[2].Success())
	assert.ErrorIs(t, obs.events[2].Err, app.ErrInvalidEntryStage)
}

func TestConcurrentAdvance_JoinCreatesSuccessorOnce(t *testing.T) {
	database, _ := testutil.NewFileTestDB(t)
	f := newPipelineFixtureOn(t, database, nil)
	f.intake(t, "Solo", "1-5", domain.StageTranslate)
	for _, ch := range []string{"01", "02", "03", "04", "05"} {
		f.advance(t, "Solo", ch, domain.StageTranslate)
	}

	var wg sync.WaitGroup
	for _, stage := range []domain.Stage{domain.StageClean, domain.StageEdit, domain.StageClean, domain.StageEdit} {
		for _, ch := range []string{"01", "02", "03", "04", "05"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Advance(context.Background(), app.AdvanceRequest{Title: "Solo", Chapter: ch, Stage: stage})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	typeset, err := f.tasks.ListActive(context.Background(), domain.StageTypeset)
	require.NoError(t, err)
	assert.Len(t, typeset, 5, "exactly one typeset task per chapter")
}

func TestConcurrentIntake_SameTitle(t *testing.T) {
	database, _ := testutil.NewFileTestDB(t)
	f := newPipelineFixtureOn(t, database, nil)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Intake(context.Background(), app.IntakeRequest{Title: "Solo", RawChapters: "1-5", EntryStage: domain.StageTranslate})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, f.countTasks(t))
	section, err := f.sections.Get(context.Background(), "Solo")
	require.NoError(t, err)
	assert.Len(t, section.Chapters, 5)
}

func TestTitleLocks_ReleaseEntries(t *testing.T) {
	locks := newTitleLocks()
	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, locks.size())
}
