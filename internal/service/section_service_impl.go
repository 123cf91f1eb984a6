package service

import (
	"context"

	"golang.org/x/text/language"

	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

type sectionService struct {
	sections repository.SectionRepo
	lang     language.Tag
}

func NewSectionService(sections repository.SectionRepo, lang language.Tag) SectionService {
	return &sectionService{sections: sections, lang: lang}
}

func (s *sectionService) Get(ctx context.Context, title string) (*domain.Section, error) {
	return s.sections.Get(ctx, domain.NormalizeTitle(title))
}

func (s *sectionService) List(ctx context.Context) ([]*domain.Section, error) {
	return s.sections.List(ctx)
}

// Titles returns every registered title in collation order.
func (s *sectionService) Titles(ctx context.Context) ([]string, error) {
	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(sections))
	for i, sec := range sections {
		titles[i] = sec.Title
	}
	sortTitles(titles, s.lang)
	return titles, nil
}
