package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/scanflow/internal/chapters"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

// legacyRoles maps the chat-bot role buttons to roles.
var legacyRoles = map[string]domain.Role{
	"✍️ Переклад":       domain.Role(domain.StageTranslate),
	"🧼 Клін":            domain.Role(domain.StageClean),
	"🖋 Ред":             domain.Role(domain.StageEdit),
	"🧩 Тайп":            domain.Role(domain.StageTypeset),
	"👁 Бета":            domain.Role(domain.StageReview),
	"👒 Тьотя Розробник": domain.RoleCoordinator,
}

func foldLabel(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\uFE0F", ""))
}

// ResolveRole maps a legacy role button, a stage key or a stage label to a
// role known to graph.
func ResolveRole(label string, graph *stagegraph.Graph) (domain.Role, bool) {
	folded := foldLabel(label)
	for legacy, role := range legacyRoles {
		if foldLabel(legacy) != folded {
			continue
		}
		if role == domain.RoleCoordinator || graph.Has(domain.Stage(role)) {
			return role, true
		}
		return "", false
	}
	if strings.EqualFold(folded, string(domain.RoleCoordinator)) {
		return domain.RoleCoordinator, true
	}
	if stage, ok := graph.Lookup(folded); ok {
		return domain.Role(stage), true
	}
	return "", false
}

func resolveStatus(status string) (domain.TaskStatus, bool) {
	switch strings.TrimSpace(status) {
	case LegacyStatusActive, string(domain.TaskActive):
		return domain.TaskActive, true
	case LegacyStatusDone, string(domain.TaskDone):
		return domain.TaskDone, true
	}
	return "", false
}

func canonicalChapter(raw string) (string, error) {
	res := chapters.Normalize(raw)
	if len(res.IDs) != 1 || len(res.Rejected) > 0 {
		return "", fmt.Errorf("invalid chapter %q", raw)
	}
	return res.IDs[0], nil
}

// ValidateBundle checks a loaded bundle against graph before conversion.
// It returns every problem found.
func ValidateBundle(bundle *LegacyBundle, graph *stagegraph.Graph) []error {
	var errs []error

	for id, task := range bundle.Tasks {
		prefix := fmt.Sprintf("tasks[%s]", id)
		if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: id must be a positive integer", prefix))
		}
		if domain.NormalizeTitle(task.Title) == "" {
			errs = append(errs, fmt.Errorf("%s.title is required", prefix))
		}
		if _, err := canonicalChapter(task.Chapter); err != nil {
			errs = append(errs, fmt.Errorf("%s.chapter: %w", prefix, err))
		}
		role, ok := ResolveRole(task.Role, graph)
		if !ok || role == domain.RoleCoordinator {
			errs = append(errs, fmt.Errorf("%s.role: unknown stage %q", prefix, task.Role))
		}
		if _, ok := resolveStatus(task.Status); !ok {
			errs = append(errs, fmt.Errorf("%s.status: unknown status %q", prefix, task.Status))
		}
	}

	errs = append(errs, validateChapterLists(SectionsFile, bundle.Sections)...)
	errs = append(errs, validateChapterLists(CompletedFile, bundle.Completed)...)

	for id, user := range bundle.Users {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("%s: empty user id", UsersFile))
		}
		for _, label := range user.Roles {
			if _, ok := ResolveRole(label, graph); !ok {
				errs = append(errs, fmt.Errorf("%s[%s]: unknown role %q", UsersFile, id, label))
			}
		}
	}
	return errs
}

func validateChapterLists(file string, lists map[string][]string) []error {
	var errs []error
	for title, chs := range lists {
		if domain.NormalizeTitle(title) == "" {
			errs = append(errs, fmt.Errorf("%s: empty title", file))
		}
		for _, ch := range chs {
			if _, err := canonicalChapter(ch); err != nil {
				errs = append(errs, fmt.Errorf("%s[%s]: %w", file, title, err))
			}
		}
	}
	return errs
}
