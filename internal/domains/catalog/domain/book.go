package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrInvalidPrice    = errors.New("price must be greater than 0")
	ErrEmptySeriesName = errors.New("series name must not be empty")
)

// Book is catalog master data.
type Book struct {
	ID        int64
	Title     string
	UnitPrice decimal.Decimal
	SeriesID  *int64
}

// NewBook validates and constructs a book.
func NewBook(id int64, title string, price decimal.Decimal) (*Book, error) {
	book := &Book{ID: id}
	if err := book.Rename(title); err != nil {
		return nil, err
	}
	if err := book.Reprice(price); err != nil {
		return nil, err
	}
	return book, nil
}

// Rename trims and validates the title.
func (b *Book) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	b.Title = title
	return nil
}

// Reprice sets a positive unit price. Past line items are not affected since they carry no price.
func (b *Book) Reprice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	b.UnitPrice = price.Round(2)
	return nil
}

// Validate re-applies invariants before persistence.
func (b *Book) Validate() error {
	if err := b.Rename(b.Title); err != nil {
		return err
	}
	return b.Reprice(b.UnitPrice)
}

// Series groups books under a unique name.
type Series struct {
	ID   int64
	Name string
}

// NewSeries validates and constructs a series.
func NewSeries(id int64, name string) (*Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptySeriesName
	}
	return &Series{ID: id, Name: name}, nil
}

// SameTitle compares titles case-insensitively.
func SameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
