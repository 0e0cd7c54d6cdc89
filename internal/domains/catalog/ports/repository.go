package ports

import (
	"context"
	"errors"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	"github.com/Apurer/book-distribution-api/internal/shared/projection"
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrSeriesMissing = errors.New("series not found")
	ErrDuplicate     = errors.New("already exists")
)

// BookProjection is a book plus persistence metadata.
type BookProjection = projection.Projection[*domain.Book]

// Repository persists books and series.
type Repository interface {
	SaveBook(ctx context.Context, book *domain.Book) (*BookProjection, error)
	GetBook(ctx context.Context, id int64) (*BookProjection, error)
	FindBookByTitle(ctx context.Context, title string) (*BookProjection, error)
	ListBooks(ctx context.Context) ([]*BookProjection, error)
	SaveSeries(ctx context.Context, series *domain.Series) (*domain.Series, error)
	GetSeries(ctx context.Context, id int64) (*domain.Series, error)
	FindSeriesByName(ctx context.Context, name string) (*domain.Series, error)
	ListSeries(ctx context.Context) ([]*domain.Series, error)
}
