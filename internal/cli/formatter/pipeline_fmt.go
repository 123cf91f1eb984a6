package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
)

// Labeler names stages for display.
type Labeler interface {
	Label(s domain.Stage) string
}

// FormatIntake summarises an intake: created chapters, skipped duplicates
// and ignored tokens.
func FormatIntake(res *app.IntakeResult, labels Labeler) string {
	var b strings.Builder
	if len(res.CreatedChapters) == 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("Nothing added: every chapter is already in %s.", res.Title)) + "\n")
	} else {
		fmt.Fprintf(&b, "%s %s, chapters %s\n",
			StyleGreen.Render("Added"), Bold(res.Title), ChapterList(res.CreatedChapters))
		stages := make(map[domain.Stage]bool)
		var names []string
		for _, t := range res.Tasks {
			if !stages[t.Stage] {
				stages[t.Stage] = true
				names = append(names, labels.Label(t.Stage))
			}
		}
		fmt.Fprintf(&b, "%s %d tasks at %s\n", Dim("Created"), len(res.Tasks), strings.Join(names, " + "))
	}
	if len(res.DuplicateChapters) > 0 {
		fmt.Fprintf(&b, "%s %s\n", Dim("Already admitted:"), ChapterList(res.DuplicateChapters))
	}
	if len(res.RejectedTokens) > 0 {
		fmt.Fprintf(&b, "%s %s\n", StyleYellow.Render("Ignored:"), strings.Join(res.RejectedTokens, ", "))
	}
	return b.String()
}

// FormatBatch reports the outcome of finishing several chapters at once.
func FormatBatch(res *app.BatchAdvanceResult, labels Labeler) string {
	var b strings.Builder
	stage := labels.Label(res.Stage)
	if len(res.Completed) == 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("No active %s tasks matched in %s.", stage, res.Title)) + "\n")
	} else {
		fmt.Fprintf(&b, "%s %s for %s, chapters %s\n",
			StyleGreen.Render("Finished"), stage, Bold(res.Title), ChapterList(res.Completed))
	}

	for _, r := range res.Results {
		if !r.Advanced() {
			continue
		}
		switch {
		case r.Archived:
			fmt.Fprintf(&b, "  %s %s\n", r.Chapter, StylePurple.Render("archived"))
		case len(r.Created) > 0:
			next := make([]string, len(r.Created))
			for i, t := range r.Created {
				next[i] = labels.Label(t.Stage)
			}
			fmt.Fprintf(&b, "  %s %s %s\n", r.Chapter, Dim("→"), strings.Join(next, ", "))
		case r.WaitingOn != "":
			fmt.Fprintf(&b, "  %s %s\n", r.Chapter, Dim("waiting for "+labels.Label(r.WaitingOn)))
		}
	}

	if len(res.Unmatched) > 0 {
		fmt.Fprintf(&b, "%s %s\n", Dim("No active task:"), ChapterList(res.Unmatched))
	}
	if len(res.RejectedTokens) > 0 {
		fmt.Fprintf(&b, "%s %s\n", StyleYellow.Render("Ignored:"), strings.Join(res.RejectedTokens, ", "))
	}
	return b.String()
}

// FormatActive lists the active chapters of one stage, per title.
func FormatActive(label string, groups []app.ActiveGroup) string {
	if len(groups) == 0 {
		return Dim(fmt.Sprintf("No active %s tasks.", label)) + "\n"
	}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Title, fmt.Sprint(len(g.Chapters)), ChapterList(g.Chapters)})
	}
	return Header(label) + "\n" + RenderTable([]string{"TITLE", "COUNT", "CHAPTERS"}, rows, 1) + "\n"
}

// FormatStageActive renders an actor's active work across stages.
func FormatStageActive(active []app.StageActive, labels Labeler) string {
	if len(active) == 0 {
		return Dim("No active tasks.") + "\n"
	}
	var b strings.Builder
	for i, sa := range active {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatActive(labels.Label(sa.Stage), sa.Groups))
	}
	return b.String()
}

// FormatChapter shows every task of a chapter with its history.
func FormatChapter(view *app.ChapterView, labels Labeler, now time.Time) string {
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("%s · %s", view.Title, view.Chapter)) + "\n")
	if len(view.Tasks) == 0 {
		b.WriteString(Dim("No tasks.") + "\n")
	} else {
		rows := make([][]string, 0, len(view.Tasks))
		for _, t := range view.Tasks {
			done := "--"
			if t.CompletedAt != nil {
				done = HumanTimestampFrom(*t.CompletedAt, now)
			}
			rows = append(rows, []string{
				fmt.Sprint(t.ID), labels.Label(t.Stage), StatusPill(t.Status),
				HumanTimestampFrom(t.CreatedAt, now), done,
			})
		}
		b.WriteString(RenderTable([]string{"ID", "STAGE", "STATUS", "CREATED", "DONE"}, rows, 0) + "\n")
	}
	if view.Archived {
		b.WriteString(StylePurple.Render("Archived") + "\n")
	}
	if len(view.Events) > 0 {
		b.WriteString("\n" + FormatEvents(view.Events, labels, now))
	}
	return b.String()
}

// FormatEvents renders task events in the order given.
func FormatEvents(events []*domain.TaskEvent, labels Labeler, now time.Time) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		actor := e.Actor
		if actor == "" {
			actor = "--"
		}
		rows = append(rows, []string{
			HumanTimestampFrom(e.At, now), EventPill(e.Kind),
			e.Title, e.Chapter, labels.Label(e.Stage), actor,
		})
	}
	return RenderTable([]string{"WHEN", "EVENT", "TITLE", "CHAPTER", "STAGE", "ACTOR"}, rows) + "\n"
}

func FormatSections(sections []*domain.Section) string {
	if len(sections) == 0 {
		return Dim("No titles yet.") + "\n"
	}
	rows := make([][]string, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, []string{s.Title, fmt.Sprint(len(s.Chapters)), ChapterList(s.Chapters)})
	}
	return RenderTable([]string{"TITLE", "CHAPTERS", "IDS"}, rows, 1) + "\n"
}

func FormatSection(s *domain.Section) string {
	var b strings.Builder
	b.WriteString(Header(s.Title) + "\n")
	fmt.Fprintf(&b, "%s %d\n", Dim("Chapters:"), len(s.Chapters))
	if len(s.Chapters) > 0 {
		b.WriteString(strings.Join(s.Chapters, ", ") + "\n")
	}
	return b.String()
}

// FormatArchive lists archived chapters grouped by title.
func FormatArchive(entries []domain.ArchiveEntry, now time.Time) string {
	if len(entries) == 0 {
		return Dim("Archive is empty.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Title, e.Chapter, HumanTimestampFrom(e.ArchivedAt, now)})
	}
	return RenderTable([]string{"TITLE", "CHAPTER", "ARCHIVED"}, rows) + "\n"
}

// RoleNames renders roles with stage labels; the coordinator role is
// shown as "Coordinator".
func RoleNames(roles []domain.Role, labels Labeler) string {
	if len(roles) == 0 {
		return Dim("none")
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		if r == domain.RoleCoordinator {
			names[i] = StyleYellow.Render("Coordinator")
			continue
		}
		names[i] = labels.Label(domain.Stage(r))
	}
	return strings.Join(names, ", ")
}

func FormatActor(a *domain.Actor, roles []domain.Role, labels Labeler) string {
	var b strings.Builder
	b.WriteString(Header(a.Name()) + "\n")
	fmt.Fprintf(&b, "%s %s\n", Dim("ID:"), a.ID)
	fmt.Fprintf(&b, "%s %s\n", Dim("Roles:"), RoleNames(roles, labels))
	return b.String()
}

func FormatActors(actors []*domain.Actor, labels Labeler) string {
	if len(actors) == 0 {
		return Dim("No actors registered.") + "\n"
	}
	rows := make([][]string, 0, len(actors))
	for _, a := range actors {
		rows = append(rows, []string{a.ID, a.DisplayName, RoleNames(a.Roles, labels)})
	}
	return RenderTable([]string{"ID", "NAME", "ROLES"}, rows) + "\n"
}

func FormatImport(res *app.ImportResult) string {
	rows := [][]string{
		{"Titles", fmt.Sprint(res.Sections)},
		{"Chapters", fmt.Sprint(res.Chapters)},
		{"Tasks", fmt.Sprint(res.Tasks)},
		{"Skipped tasks", fmt.Sprint(res.SkippedTasks)},
		{"Archive entries", fmt.Sprint(res.ArchiveEntries)},
		{"Actors", fmt.Sprint(res.Actors)},
	}
	if res.RenumberedTasks > 0 {
		rows = append(rows, []string{"Renumbered tasks", fmt.Sprint(res.RenumberedTasks)})
	}
	return StyleGreen.Render("Import complete.") + "\n" + RenderTable([]string{"RECORD", "IMPORTED"}, rows, 1) + "\n"
}
