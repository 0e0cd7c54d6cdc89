package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
)

// BookInput carries admin-provided book fields.
type BookInput struct {
	ID        int64
	Title     string
	UnitPrice decimal.Decimal
	SeriesID  *int64
}

// Service exposes catalog use cases.
type Service interface {
	CreateBook(ctx context.Context, input BookInput) (*BookProjection, error)
	UpdateBook(ctx context.Context, id int64, input BookInput) (*BookProjection, error)
	GetBook(ctx context.Context, id int64) (*BookProjection, error)
	ListBooks(ctx context.Context) ([]*BookProjection, error)
	BookExists(ctx context.Context, id int64) (bool, error)
	CreateSeries(ctx context.Context, name string) (*domain.Series, error)
	ListSeries(ctx context.Context) ([]*domain.Series, error)
}
