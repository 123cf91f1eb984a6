package importer

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

// Plan holds the domain objects a legacy bundle converts to, in a
// deterministic order.
type Plan struct {
	Sections []*domain.Section
	Tasks    []*domain.Task
	Archive  []domain.ArchiveEntry
	Actors   []*domain.Actor
	// SkippedTasks counts legacy tasks that repeated an earlier task's
	// (title, chapter, stage). The lowest id wins.
	SkippedTasks int
}

// Convert transforms a validated bundle into domain objects stamped with now.
// Call ValidateBundle first; Convert fails on the first invalid entry.
//
// Every chapter referenced by a task is admitted to its title's section, so
// intake of an imported chapter is reported as a duplicate.
func Convert(bundle *LegacyBundle, graph *stagegraph.Graph, now time.Time) (*Plan, error) {
	plan := &Plan{}

	tasks, skipped, err := convertTasks(bundle.Tasks, graph, now)
	if err != nil {
		return nil, err
	}
	plan.Tasks, plan.SkippedTasks = tasks, skipped

	if plan.Sections, err = convertSections(bundle.Sections, tasks, now); err != nil {
		return nil, err
	}
	if plan.Archive, err = convertArchive(bundle.Completed, now); err != nil {
		return nil, err
	}
	if plan.Actors, err = convertUsers(bundle.Users, graph, now); err != nil {
		return nil, err
	}
	return plan, nil
}

func convertTasks(legacy map[string]LegacyTask, graph *stagegraph.Graph, now time.Time) ([]*domain.Task, int, error) {
	type numbered struct {
		id   int64
		task LegacyTask
	}
	ordered := make([]numbered, 0, len(legacy))
	for key, task := range legacy {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return nil, 0, fmt.Errorf("task id %q is not a positive integer", key)
		}
		ordered = append(ordered, numbered{id: id, task: task})
	}
	slices.SortFunc(ordered, func(a, b numbered) int { return cmp.Compare(a.id, b.id) })

	seen := make(map[domain.TaskKey]bool, len(ordered))
	out := make([]*domain.Task, 0, len(ordered))
	skipped := 0
	for _, n := range ordered {
		chapter, err := canonicalChapter(n.task.Chapter)
		if err != nil {
			return nil, 0, fmt.Errorf("task %d: %w", n.id, err)
		}
		role, ok := ResolveRole(n.task.Role, graph)
		if !ok || role == domain.RoleCoordinator {
			return nil, 0, fmt.Errorf("task %d: unknown stage %q", n.id, n.task.Role)
		}
		status, ok := resolveStatus(n.task.Status)
		if !ok {
			return nil, 0, fmt.Errorf("task %d: unknown status %q", n.id, n.task.Status)
		}

		task := &domain.Task{
			ID:        n.id,
			Title:     domain.NormalizeTitle(n.task.Title),
			Chapter:   chapter,
			Stage:     domain.Stage(role),
			Status:    domain.TaskActive,
			CreatedAt: now,
		}
		if seen[task.Key()] {
			skipped++
			continue
		}
		seen[task.Key()] = true
		if status == domain.TaskDone {
			task.MarkDone(now)
		}
		out = append(out, task)
	}
	return out, skipped, nil
}

func convertSections(legacy map[string][]string, tasks []*domain.Task, now time.Time) ([]*domain.Section, error) {
	byTitle := map[string]*domain.Section{}
	admit := func(title, chapter string) {
		sec, ok := byTitle[title]
		if !ok {
			sec = &domain.Section{Title: title, CreatedAt: now}
			byTitle[title] = sec
		}
		if !sec.Has(chapter) {
			sec.Chapters = append(sec.Chapters, chapter)
		}
	}

	for _, raw := range slices.Sorted(maps.Keys(legacy)) {
		title := domain.NormalizeTitle(raw)
		if title == "" {
			return nil, fmt.Errorf("%s: empty title", SectionsFile)
		}
		if _, ok := byTitle[title]; !ok {
			byTitle[title] = &domain.Section{Title: title, CreatedAt: now}
		}
		for _, ch := range legacy[raw] {
			chapter, err := canonicalChapter(ch)
			if err != nil {
				return nil, fmt.Errorf("%s[%s]: %w", SectionsFile, raw, err)
			}
			admit(title, chapter)
		}
	}
	for _, task := range tasks {
		admit(task.Title, task.Chapter)
	}

	out := make([]*domain.Section, 0, len(byTitle))
	for _, title := range slices.Sorted(maps.Keys(byTitle)) {
		out = append(out, byTitle[title])
	}
	return out, nil
}

func convertArchive(legacy map[string][]string, now time.Time) ([]domain.ArchiveEntry, error) {
	var out []domain.ArchiveEntry
	seen := map[[2]string]bool{}
	for _, raw := range slices.Sorted(maps.Keys(legacy)) {
		title := domain.NormalizeTitle(raw)
		if title == "" {
			return nil, fmt.Errorf("%s: empty title", CompletedFile)
		}
		for _, ch := range legacy[raw] {
			chapter, err := canonicalChapter(ch)
			if err != nil {
				return nil, fmt.Errorf("%s[%s]: %w", CompletedFile, raw, err)
			}
			key := [2]string{title, chapter}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, domain.ArchiveEntry{Title: title, Chapter: chapter, ArchivedAt: now})
		}
	}
	return out, nil
}

func convertUsers(legacy map[string]LegacyUser, graph *stagegraph.Graph, now time.Time) ([]*domain.Actor, error) {
	out := make([]*domain.Actor, 0, len(legacy))
	for _, id := range slices.Sorted(maps.Keys(legacy)) {
		actor := &domain.Actor{ID: id, CreatedAt: now}
		for _, label := range legacy[id].Roles {
			role, ok := ResolveRole(label, graph)
			if !ok {
				return nil, fmt.Errorf("%s[%s]: unknown role %q", UsersFile, id, label)
			}
			actor.AddRole(role)
		}
		out = append(out, actor)
	}
	return out, nil
}
