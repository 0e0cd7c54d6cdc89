package application

import (
	"context"
	"errors"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
)

// Service orchestrates catalog use cases.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateBook(ctx context.Context, input ports.BookInput) (*ports.BookProjection, error) {
	book, err := domain.NewBook(input.ID, input.Title, input.UnitPrice)
	if err != nil {
		return nil, mapError(err)
	}
	book.SeriesID = input.SeriesID
	if err := s.checkSeries(ctx, book.SeriesID); err != nil {
		return nil, mapError(err)
	}
	if err := s.checkTitleFree(ctx, book.Title, 0); err != nil {
		return nil, mapError(err)
	}
	if input.ID != 0 {
		if _, err := s.repo.GetBook(ctx, input.ID); err == nil {
			return nil, mapError(ports.ErrDuplicate)
		} else if !errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
	}
	saved, err := s.repo.SaveBook(ctx, book)
	return saved, mapError(err)
}

// UpdateBook applies an administrative edit. Price changes affect revenue figures retroactively.
func (s *Service) UpdateBook(ctx context.Context, id int64, input ports.BookInput) (*ports.BookProjection, error) {
	existing, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	book := *existing.Entity
	if input.Title != "" {
		if err := book.Rename(input.Title); err != nil {
			return nil, mapError(err)
		}
	}
	if !input.UnitPrice.IsZero() {
		if err := book.Reprice(input.UnitPrice); err != nil {
			return nil, mapError(err)
		}
	}
	if input.SeriesID != nil {
		book.SeriesID = input.SeriesID
	}
	if err := s.checkSeries(ctx, book.SeriesID); err != nil {
		return nil, mapError(err)
	}
	if err := s.checkTitleFree(ctx, book.Title, id); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.SaveBook(ctx, &book)
	return saved, mapError(err)
}

func (s *Service) GetBook(ctx context.Context, id int64) (*ports.BookProjection, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context) ([]*ports.BookProjection, error) {
	return s.repo.ListBooks(ctx)
}

func (s *Service) BookExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	_, err := s.repo.GetBook(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) CreateSeries(ctx context.Context, name string) (*domain.Series, error) {
	series, err := domain.NewSeries(0, name)
	if err != nil {
		return nil, mapError(err)
	}
	if _, err := s.repo.FindSeriesByName(ctx, series.Name); err == nil {
		return nil, mapError(ports.ErrDuplicate)
	} else if !errors.Is(err, ports.ErrSeriesMissing) {
		return nil, err
	}
	saved, err := s.repo.SaveSeries(ctx, series)
	return saved, mapError(err)
}

func (s *Service) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	return s.repo.ListSeries(ctx)
}

func (s *Service) checkSeries(ctx context.Context, seriesID *int64) error {
	if seriesID == nil {
		return nil
	}
	_, err := s.repo.GetSeries(ctx, *seriesID)
	return err
}

func (s *Service) checkTitleFree(ctx context.Context, title string, selfID int64) error {
	existing, err := s.repo.FindBookByTitle(ctx, title)
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Entity.ID != selfID {
		return ports.ErrDuplicate
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
