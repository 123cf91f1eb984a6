package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/alexanderramin/scanflow/internal/access"
	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/chapters"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

// effect performs the side effect of a transition and returns the next step.
// Returning s.Step keeps the conversation where it is.
type effect func(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error)

type transition struct {
	from Step
	// input is the exact option matched; empty matches any text.
	input  string
	effect effect
}

// transitions is scanned in order; the first match wins.
var transitions = []transition{
	{stepAny, OptBack, backToMenu},
	{stepAny, CmdMenu, backToMenu},
	{stepAny, CmdStart, start},

	{StepMenu, OptMyTasks, myTasks},
	{StepMenu, OptMyRoles, myRoles},
	{StepMenu, OptChooseRoles, openRoles},
	{StepMenu, OptFinish, openFinish},
	{StepMenu, OptAddChapters, openIntake},

	{StepChooseRoles, OptDone, rolesDone},
	{StepChooseRoles, "", pickRole},

	{StepIntakeTitle, OptNewTitle, askNewTitle},
	{StepIntakeTitle, "", pickIntakeTitle},
	{StepIntakeNewTitle, "", pickIntakeTitle},
	{StepIntakeChapters, "", takeChapters},
	{StepIntakeStart, OptFromScratch, intakeFromScratch},
	{StepIntakeStart, OptContinue, askEntryStage},
	{StepIntakeStage, "", intakeAtStage},

	{StepFinishRole, "", pickFinishRole},
	{StepFinishTitle, "", pickFinishTitle},
	{StepFinishChapters, "", finishChapters},
}

func lookup(step Step, text string) (transition, bool) {
	for _, t := range transitions {
		if t.from != stepAny && t.from != step {
			continue
		}
		if t.input == "" || t.input == text {
			return t, true
		}
	}
	return transition{}, false
}

// prompt repeats the question of the current step.
func (m *Manager) prompt(ctx context.Context, s *Session) (Reply, error) {
	switch s.Step {
	case StepChooseRoles:
		return m.rolePrompt(""), nil
	case StepIntakeTitle:
		return m.titlePrompt(ctx)
	case StepIntakeNewTitle:
		return Reply{Text: "Enter the name of the new title.", Options: []string{OptBack}}, nil
	case StepIntakeChapters:
		return chaptersPrompt(s.Title), nil
	case StepIntakeStart:
		return startPrompt(""), nil
	case StepIntakeStage:
		return m.entryStagePrompt(), nil
	case StepFinishRole:
		stages, err := m.stageRoles(ctx, s.ActorID)
		if err != nil {
			return Reply{}, err
		}
		return m.finishRolePrompt(stages), nil
	case StepFinishTitle:
		titles, err := m.deps.Pipeline.ActiveTitles(ctx, s.Stage)
		if err != nil {
			return Reply{}, err
		}
		return m.finishTitlePrompt(s.Stage, titles), nil
	case StepFinishChapters:
		return m.finishChaptersPrompt(s), nil
	default:
		return m.menu(ctx, s.ActorID, "Choose an action.")
	}
}

func (m *Manager) menu(ctx context.Context, actorID, text string) (Reply, error) {
	options := []string{OptMyTasks, OptMyRoles, OptChooseRoles, OptFinish}
	err := m.deps.Gate.CanIntake(ctx, actorID)
	switch {
	case err == nil:
		options = append(options, OptAddChapters)
	case !errors.Is(err, access.ErrAccessDenied):
		return Reply{}, err
	}
	return Reply{Text: text, Options: options}, nil
}

// stageRoles returns the stages actor may finish, in graph order.
func (m *Manager) stageRoles(ctx context.Context, actorID string) ([]domain.Stage, error) {
	roles, err := m.deps.Gate.Roles(ctx, actorID)
	if err != nil {
		return nil, err
	}
	var out []domain.Stage
	for _, stage := range m.deps.Graph.Stages() {
		if slices.Contains(roles, domain.StageRole(stage)) {
			out = append(out, stage)
		}
	}
	return out, nil
}

func (m *Manager) labels(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = m.deps.Graph.Label(s)
	}
	return out
}

func backToMenu(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	reply, err := m.menu(ctx, s.ActorID, "Back to the main menu.")
	return StepMenu, reply, err
}

func start(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	roles, err := m.deps.Gate.Roles(ctx, s.ActorID)
	if err != nil {
		return s.Step, Reply{}, err
	}
	if len(roles) == 0 {
		return StepChooseRoles, m.rolePrompt("Welcome! Who are you? Pick one or more roles, then press Done."), nil
	}
	reply, err := m.menu(ctx, s.ActorID, "Welcome back! Your roles: "+m.roleNames(roles)+".")
	return StepMenu, reply, err
}

func (m *Manager) roleNames(roles []domain.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		if r == domain.RoleCoordinator {
			names[i] = "Coordinator"
			continue
		}
		names[i] = m.deps.Graph.Label(domain.Stage(r))
	}
	return strings.Join(names, ", ")
}

func myRoles(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	roles, err := m.deps.Gate.Roles(ctx, s.ActorID)
	if err != nil {
		return s.Step, Reply{}, err
	}
	text := "You have no roles yet. Use " + OptChooseRoles + " to add some."
	if len(roles) > 0 {
		text = "Your roles: " + m.roleNames(roles) + "."
	}
	reply, err := m.menu(ctx, s.ActorID, text)
	return StepMenu, reply, err
}

func myTasks(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	stages, err := m.stageRoles(ctx, s.ActorID)
	if err != nil {
		return s.Step, Reply{}, err
	}
	active, err := m.deps.Pipeline.ActiveForStages(ctx, stages)
	if err != nil {
		return s.Step, Reply{}, err
	}
	if len(active) == 0 {
		reply, err := m.menu(ctx, s.ActorID, "You have no active tasks.")
		return StepMenu, reply, err
	}

	var b strings.Builder
	b.WriteString("Your active tasks:")
	for _, sa := range active {
		for _, g := range sa.Groups {
			fmt.Fprintf(&b, "\n%s: %s, chapters %s", m.deps.Graph.Label(sa.Stage), g.Title, strings.Join(g.Chapters, ", "))
		}
	}
	reply, err := m.menu(ctx, s.ActorID, b.String())
	return StepMenu, reply, err
}

func (m *Manager) rolePrompt(text string) Reply {
	if text == "" {
		text = "Pick a role to add, then press Done."
	}
	options := append(m.labels(m.deps.Graph.Stages()), OptDone)
	return Reply{Text: text, Options: options}
}

func openRoles(_ context.Context, m *Manager, _ *Session, _ string) (Step, Reply, error) {
	return StepChooseRoles, m.rolePrompt(""), nil
}

// pickRole grants a stage role. The coordinator role cannot be self-assigned.
func pickRole(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error) {
	stage, ok := m.deps.Graph.Lookup(text)
	if !ok {
		return s.Step, m.rolePrompt(fmt.Sprintf("%q is not a role you can pick.", text)), nil
	}
	added, err := m.deps.Roster.GrantRole(ctx, s.ActorID, domain.StageRole(stage))
	if err != nil {
		return s.Step, Reply{}, err
	}
	label := m.deps.Graph.Label(stage)
	if !added {
		return s.Step, m.rolePrompt("You already have the role " + label + "."), nil
	}
	return s.Step, m.rolePrompt("Role added: " + label + "."), nil
}

func rolesDone(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	roles, err := m.deps.Gate.Roles(ctx, s.ActorID)
	if err != nil {
		return s.Step, Reply{}, err
	}
	if len(roles) == 0 {
		return s.Step, m.rolePrompt("Pick at least one role first."), nil
	}
	reply, err := m.menu(ctx, s.ActorID, "Roles saved: "+m.roleNames(roles)+".")
	return StepMenu, reply, err
}

func (m *Manager) titlePrompt(ctx context.Context) (Reply, error) {
	titles, err := m.deps.Sections.Titles(ctx)
	if err != nil {
		return Reply{}, err
	}
	options := append(titles, OptNewTitle, OptBack)
	return Reply{Text: "Choose a title or add a new one.", Options: options}, nil
}

func openIntake(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	if err := m.deps.Gate.CanIntake(ctx, s.ActorID); err != nil {
		if !errors.Is(err, access.ErrAccessDenied) {
			return s.Step, Reply{}, err
		}
		reply, err := m.menu(ctx, s.ActorID, "Only coordinators can add chapters.")
		return s.Step, reply, err
	}
	reply, err := m.titlePrompt(ctx)
	return StepIntakeTitle, reply, err
}

func askNewTitle(_ context.Context, _ *Manager, _ *Session, _ string) (Step, Reply, error) {
	return StepIntakeNewTitle, Reply{Text: "Enter the name of the new title.", Options: []string{OptBack}}, nil
}

func chaptersPrompt(title string) Reply {
	return Reply{
		Text:    fmt.Sprintf("Which chapters of %s? For example 1-5, 7.", title),
		Options: []string{OptBack},
	}
}

func pickIntakeTitle(_ context.Context, _ *Manager, s *Session, text string) (Step, Reply, error) {
	title := domain.NormalizeTitle(text)
	if title == "" {
		return s.Step, Reply{Text: "The title must not be empty.", Options: []string{OptBack}}, nil
	}
	s.Title = title
	return StepIntakeChapters, chaptersPrompt(title), nil
}

func startPrompt(text string) Reply {
	if text != "" {
		text += "\n\n"
	}
	return Reply{
		Text:    text + "Where does work start?",
		Options: []string{OptFromScratch, OptContinue, OptBack},
	}
}

// takeChapters previews which chapters are new. Nothing is written until the
// entry stage is chosen.
func takeChapters(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error) {
	parsed := chapters.Normalize(text)
	if len(parsed.IDs) == 0 {
		reply := chaptersPrompt(s.Title)
		reply.Text = fmt.Sprintf("No chapter numbers found in %q. ", text) + reply.Text
		return s.Step, reply, nil
	}

	var existing []string
	section, err := m.deps.Sections.Get(ctx, s.Title)
	switch {
	case err == nil:
		existing = section.Chapters
	case !errors.Is(err, repository.ErrNotFound):
		return s.Step, Reply{}, err
	}

	added, duplicates := domain.PartitionChapters(existing, parsed.IDs)
	if len(added) == 0 {
		reply := chaptersPrompt(s.Title)
		reply.Text = fmt.Sprintf("All entered chapters are already in %s. ", s.Title) + reply.Text
		return s.Step, reply, nil
	}

	s.RawChapters = text
	s.NewChapters = added
	summary := fmt.Sprintf("New for %s: chapters %s.", s.Title, strings.Join(added, ", "))
	if len(duplicates) > 0 {
		summary += fmt.Sprintf("\nAlready there, skipped: %s.", strings.Join(duplicates, ", "))
	}
	if len(parsed.Rejected) > 0 {
		summary += fmt.Sprintf("\nIgnored: %s.", strings.Join(parsed.Rejected, ", "))
	}
	return StepIntakeStart, startPrompt(summary), nil
}

func (m *Manager) entryStagePrompt() Reply {
	options := append(m.labels(m.deps.Graph.EntryStages()), OptBack)
	return Reply{Text: "Which stage does work start at?", Options: options}
}

func askEntryStage(_ context.Context, m *Manager, _ *Session, _ string) (Step, Reply, error) {
	return StepIntakeStage, m.entryStagePrompt(), nil
}

func intakeFromScratch(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	return m.runIntake(ctx, s, m.deps.Graph.EntryStages()[0])
}

func intakeAtStage(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error) {
	stage, ok := m.deps.Graph.Lookup(text)
	if _, entry := m.deps.Graph.EntryForks(stage); !ok || !entry {
		reply := m.entryStagePrompt()
		reply.Text = fmt.Sprintf("Work cannot start at %q. ", text) + reply.Text
		return s.Step, reply, nil
	}
	return m.runIntake(ctx, s, stage)
}

func (m *Manager) runIntake(ctx context.Context, s *Session, stage domain.Stage) (Step, Reply, error) {
	res, err := m.deps.Pipeline.Intake(ctx, app.IntakeRequest{
		Title:       s.Title,
		RawChapters: s.RawChapters,
		EntryStage:  stage,
		Actor:       s.ActorID,
	})
	if err != nil {
		return s.Step, Reply{}, err
	}

	text := fmt.Sprintf("All entered chapters are already in %s.", res.Title)
	if len(res.CreatedChapters) > 0 {
		text = fmt.Sprintf("Tasks created for %s, chapters %s, starting at %s.",
			res.Title, strings.Join(res.CreatedChapters, ", "), m.deps.Graph.Label(stage))
	}
	reply, err := m.menu(ctx, s.ActorID, text)
	return StepMenu, reply, err
}

func (m *Manager) finishRolePrompt(stages []domain.Stage) Reply {
	return Reply{Text: "Which role did you finish work for?", Options: append(m.labels(stages), OptBack)}
}

func openFinish(ctx context.Context, m *Manager, s *Session, _ string) (Step, Reply, error) {
	stages, err := m.stageRoles(ctx, s.ActorID)
	if err != nil {
		return s.Step, Reply{}, err
	}
	if len(stages) == 0 {
		reply, err := m.menu(ctx, s.ActorID, "You have no roles yet. Use "+OptChooseRoles+" first.")
		return s.Step, reply, err
	}
	return StepFinishRole, m.finishRolePrompt(stages), nil
}

func pickFinishRole(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error) {
	stages, err := m.stageRoles(ctx, s.ActorID)
	if err != nil {
		return s.Step, Reply{}, err
	}
	stage, ok := m.deps.Graph.Lookup(text)
	if !ok || !slices.Contains(stages, stage) {
		reply := m.finishRolePrompt(stages)
		reply.Text = "That is not your role. " + reply.Text
		return s.Step, reply, nil
	}
	if err := m.deps.Gate.CanComplete(ctx, s.ActorID, stage); err != nil {
		if !errors.Is(err, access.ErrAccessDenied) {
			return s.Step, Reply{}, err
		}
		reply := m.finishRolePrompt(stages)
		reply.Text = "You may not finish " + m.deps.Graph.Label(stage) + " tasks. " + reply.Text
		return s.Step, reply, nil
	}

	titles, err := m.deps.Pipeline.ActiveTitles(ctx, stage)
	if err != nil {
		return s.Step, Reply{}, err
	}
	if len(titles) == 0 {
		reply := m.finishRolePrompt(stages)
		reply.Text = "No active tasks for " + m.deps.Graph.Label(stage) + ". " + reply.Text
		return s.Step, reply, nil
	}
	s.Stage = stage
	return StepFinishTitle, m.finishTitlePrompt(stage, titles), nil
}

func (m *Manager) finishTitlePrompt(stage domain.Stage, titles []string) Reply {
	return Reply{
		Text:    "Which title did you finish for " + m.deps.Graph.Label(stage) + "?",
		Options: append(slices.Clone(titles), OptBack),
	}
}

func pickFinishTitle(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error) {
	titles, err := m.deps.Pipeline.ActiveTitles(ctx, s.Stage)
	if err != nil {
		return s.Step, Reply{}, err
	}
	title := domain.NormalizeTitle(text)
	if !slices.Contains(titles, title) {
		reply := m.finishTitlePrompt(s.Stage, titles)
		reply.Text = "No active tasks with that title for this role. " + reply.Text
		return s.Step, reply, nil
	}
	s.Title = title
	return StepFinishChapters, m.finishChaptersPrompt(s), nil
}

func (m *Manager) finishChaptersPrompt(s *Session) Reply {
	return Reply{
		Text: fmt.Sprintf("Which chapters of %s are finished for %s? For example 01-05, 07.",
			s.Title, m.deps.Graph.Label(s.Stage)),
		Options: []string{OptBack},
	}
}

func finishChapters(ctx context.Context, m *Manager, s *Session, text string) (Step, Reply, error) {
	res, err := m.deps.Pipeline.AdvanceBatch(ctx, app.BatchAdvanceRequest{
		Title:       s.Title,
		RawChapters: text,
		Stage:       s.Stage,
		Actor:       s.ActorID,
	})
	if err != nil {
		return s.Step, Reply{}, err
	}

	msg := "No matching active tasks, or those chapters were already finished."
	if len(res.Completed) > 0 {
		msg = fmt.Sprintf("Finished (%d) for %s: %s, chapters %s. Next stages were created where ready.",
			len(res.Completed), m.deps.Graph.Label(s.Stage), res.Title, strings.Join(res.Completed, ", "))
	}
	reply, err := m.menu(ctx, s.ActorID, msg)
	return StepMenu, reply, err
}
