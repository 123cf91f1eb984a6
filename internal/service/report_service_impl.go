package service

import (
	"context"

	"golang.org/x/text/language"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

type reportService struct {
	sections repository.SectionRepo
	tasks    repository.TaskRepo
	archive  repository.ArchiveRepo
	lang     language.Tag
}

func NewReportService(sections repository.SectionRepo, tasks repository.TaskRepo, archive repository.ArchiveRepo, lang language.Tag) ReportService {
	return &reportService{sections: sections, tasks: tasks, archive: archive, lang: lang}
}

// Progress summarises every title that has admitted chapters, tasks or
// archive entries.
func (s *reportService) Progress(ctx context.Context) ([]app.TitleProgress, error) {
	byTitle := map[string]*app.TitleProgress{}
	get := func(title string) *app.TitleProgress {
		p, ok := byTitle[title]
		if !ok {
			p = &app.TitleProgress{
				Title:  title,
				Active: map[domain.Stage]int{},
				Done:   map[domain.Stage]int{},
			}
			byTitle[title] = p
		}
		return p
	}

	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, sec := range sections {
		get(sec.Title).Admitted = len(sec.Chapters)
	}

	counts, err := s.tasks.StageCounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		p := get(c.Title)
		if c.Status == domain.TaskDone {
			p.Done[c.Stage] += c.Count
		} else {
			p.Active[c.Stage] += c.Count
		}
	}

	entries, err := s.archive.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		get(e.Title).Archived++
	}

	titles := make([]string, 0, len(byTitle))
	for title := range byTitle {
		titles = append(titles, title)
	}
	sortTitles(titles, s.lang)

	out := make([]app.TitleProgress, 0, len(titles))
	for _, title := range titles {
		out = append(out, *byTitle[title])
	}
	return out, nil
}
