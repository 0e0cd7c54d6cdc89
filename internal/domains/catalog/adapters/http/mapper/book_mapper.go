package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
)

// Book is the transport shape of a catalog book.
type Book struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SeriesID  *int64          `json:"series_id,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// BookInput is the admin payload for creating or editing a book.
type BookInput struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SeriesID  *int64          `json:"series_id"`
}

// Series is the transport shape of a series.
type Series struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func ToBookInput(in BookInput) ports.BookInput {
	return ports.BookInput{ID: in.ID, Title: in.Title, UnitPrice: in.UnitPrice, SeriesID: in.SeriesID}
}

func FromProjection(p *ports.BookProjection) Book {
	if p == nil || p.Entity == nil {
		return Book{}
	}
	out := Book{
		ID:        p.Entity.ID,
		Title:     p.Entity.Title,
		UnitPrice: p.Entity.UnitPrice,
		SeriesID:  p.Entity.SeriesID,
	}
	if updated := p.Metadata.LastModified(); !updated.IsZero() {
		out.UpdatedAt = &updated
	}
	return out
}

func FromProjections(list []*ports.BookProjection) []Book {
	out := make([]Book, 0, len(list))
	for _, p := range list {
		out = append(out, FromProjection(p))
	}
	return out
}

func FromSeries(list []*domain.Series) []Series {
	out := make([]Series, 0, len(list))
	for _, s := range list {
		out = append(out, Series{ID: s.ID, Name: s.Name})
	}
	return out
}
