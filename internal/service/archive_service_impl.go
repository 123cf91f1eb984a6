package service

import (
	"context"
	"time"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

type archiveService struct {
	archive repository.ArchiveRepo
	uow     db.UnitOfWork
	now     func() time.Time
}

func NewArchiveService(archive repository.ArchiveRepo, uow db.UnitOfWork) ArchiveService {
	return &archiveService{archive: archive, uow: uow, now: utcNow}
}

func (s *archiveService) Record(ctx context.Context, title, chapter string) (bool, error) {
	title = domain.NormalizeTitle(title)
	if title == "" {
		return false, app.ErrEmptyTitle
	}
	ch, err := canonicalChapter(chapter)
	if err != nil {
		return false, err
	}
	return s.archive.Add(ctx, title, ch, s.now())
}

// RecordChapters archives every chapter in one transaction and returns the
// ones that were not archived before, in input order.
func (s *archiveService) RecordChapters(ctx context.Context, title string, chapterIDs []string) ([]string, error) {
	title = domain.NormalizeTitle(title)
	if title == "" {
		return nil, app.ErrEmptyTitle
	}
	ids := make([]string, 0, len(chapterIDs))
	for _, raw := range chapterIDs {
		ch, err := canonicalChapter(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, ch)
	}
	ids = dedupe(ids)

	at := s.now()
	added := []string{}
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		archive := repository.NewSQLiteArchiveRepo(tx)
		added = added[:0]
		for _, ch := range ids {
			ok, err := archive.Add(ctx, title, ch, at)
			if err != nil {
				return err
			}
			if ok {
				added = append(added, ch)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *archiveService) List(ctx context.Context, title string) ([]domain.ArchiveEntry, error) {
	if title == "" {
		return s.archive.List(ctx)
	}
	return s.archive.ListByTitle(ctx, domain.NormalizeTitle(title))
}

func (s *archiveService) Titles(ctx context.Context) ([]string, error) {
	return s.archive.Titles(ctx)
}
