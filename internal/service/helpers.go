package service

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/chapters"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

// sortTitles orders titles for display with the collation rules of lang.
// A Collator is not safe for concurrent use, so one is built per call.
func sortTitles(titles []string, lang language.Tag) {
	collate.New(lang, collate.IgnoreCase).SortStrings(titles)
}

// groupActive groups active tasks by title, collating titles and ordering
// chapters numerically.
func groupActive(tasks []*domain.Task, lang language.Tag) []app.ActiveGroup {
	byTitle := map[string][]string{}
	for _, t := range tasks {
		byTitle[t.Title] = append(byTitle[t.Title], t.Chapter)
	}
	titles := make([]string, 0, len(byTitle))
	for title := range byTitle {
		titles = append(titles, title)
	}
	sortTitles(titles, lang)

	groups := make([]app.ActiveGroup, 0, len(titles))
	for _, title := range titles {
		chs := byTitle[title]
		chapters.Sort(chs)
		groups = append(groups, app.ActiveGroup{Title: title, Chapters: chs})
	}
	return groups
}

// canonicalChapter maps user input such as "1" to the stored id "01".
func canonicalChapter(raw string) (string, error) {
	res := chapters.Normalize(raw)
	if len(res.IDs) != 1 || len(res.Rejected) > 0 {
		return "", fmt.Errorf("%w: %q", app.ErrInvalidChapter, raw)
	}
	return res.IDs[0], nil
}

// dedupe drops repeated ids, keeping first occurrences.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
