package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	"github.com/Apurer/book-distribution-api/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory catalog.
type Repository struct {
	mu           sync.RWMutex
	books        map[int64]*ports.BookProjection
	series       map[int64]*domain.Series
	nextBookID   int64
	nextSeriesID int64
}

func NewRepository() *Repository {
	return &Repository{books: map[int64]*ports.BookProjection{}, series: map[int64]*domain.Series{}}
}

func (r *Repository) SaveBook(_ context.Context, book *domain.Book) (*ports.BookProjection, error) {
	if book == nil {
		return nil, errors.New("book is nil")
	}
	clone := cloneBook(book)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID == 0 {
		r.nextBookID++
		clone.ID = r.nextBookID
	} else if clone.ID > r.nextBookID {
		r.nextBookID = clone.ID
	}
	var meta projection.Metadata
	if existing, ok := r.books[clone.ID]; ok {
		meta = existing.Metadata
	}
	r.books[clone.ID] = &ports.BookProjection{Entity: clone, Metadata: meta.Touch(time.Now().UTC())}
	return cloneProjection(r.books[clone.ID]), nil
}

func (r *Repository) GetBook(_ context.Context, id int64) (*ports.BookProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.books[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneProjection(stored), nil
}

func (r *Repository) FindBookByTitle(_ context.Context, title string) (*ports.BookProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.books {
		if domain.SameTitle(stored.Entity.Title, title) {
			return cloneProjection(stored), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *Repository) ListBooks(_ context.Context) ([]*ports.BookProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*ports.BookProjection, 0, len(r.books))
	for _, stored := range r.books {
		list = append(list, cloneProjection(stored))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Entity.ID < list[j].Entity.ID })
	return list, nil
}

func (r *Repository) SaveSeries(_ context.Context, series *domain.Series) (*domain.Series, error) {
	if series == nil {
		return nil, errors.New("series is nil")
	}
	clone := *series
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID == 0 {
		r.nextSeriesID++
		clone.ID = r.nextSeriesID
	} else if clone.ID > r.nextSeriesID {
		r.nextSeriesID = clone.ID
	}
	r.series[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *Repository) GetSeries(_ context.Context, id int64) (*domain.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.series[id]
	if !ok {
		return nil, ports.ErrSeriesMissing
	}
	clone := *stored
	return &clone, nil
}

func (r *Repository) FindSeriesByName(_ context.Context, name string) (*domain.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.series {
		if domain.SameTitle(stored.Name, name) {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, ports.ErrSeriesMissing
}

func (r *Repository) ListSeries(_ context.Context) ([]*domain.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Series, 0, len(r.series))
	for _, stored := range r.series {
		clone := *stored
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func cloneBook(book *domain.Book) *domain.Book {
	clone := *book
	if book.SeriesID != nil {
		id := *book.SeriesID
		clone.SeriesID = &id
	}
	return &clone
}

func cloneProjection(p *ports.BookProjection) *ports.BookProjection {
	return &ports.BookProjection{Entity: cloneBook(p.Entity), Metadata: p.Metadata}
}
