package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	"github.com/Apurer/book-distribution-api/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists the catalog using GORM. Caller manages DB lifecycle and schema.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type bookRecord struct {
	ID        int64           `gorm:"primaryKey;column:id"`
	Title     string          `gorm:"column:title;not null;uniqueIndex"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	SeriesID  *int64          `gorm:"column:series_id;index"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (bookRecord) TableName() string { return "books" }

type seriesRecord struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null;uniqueIndex"`
}

func (seriesRecord) TableName() string { return "series" }

func (r *Repository) SaveBook(ctx context.Context, book *domain.Book) (*ports.BookProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if book == nil {
		return nil, errors.New("book is nil")
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}
	record := toBookRecord(book)
	db := r.db.WithContext(ctx)
	if record.ID == 0 {
		if err := db.Create(&record).Error; err != nil {
			return nil, translateError(err)
		}
	} else if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "unit_price", "series_id", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, translateError(err)
	}
	return r.GetBook(ctx, record.ID)
}

func (r *Repository) GetBook(ctx context.Context, id int64) (*ports.BookProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record bookRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

func (r *Repository) FindBookByTitle(ctx context.Context, title string) (*ports.BookProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []bookRecord
	err := r.db.WithContext(ctx).
		Where("LOWER(title) = ?", strings.ToLower(strings.TrimSpace(title))).
		Limit(1).Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ports.ErrNotFound
	}
	return records[0].toProjection(), nil
}

func (r *Repository) ListBooks(ctx context.Context) ([]*ports.BookProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []bookRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*ports.BookProjection, 0, len(records))
	for i := range records {
		list = append(list, records[i].toProjection())
	}
	return list, nil
}

func (r *Repository) SaveSeries(ctx context.Context, series *domain.Series) (*domain.Series, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if series == nil {
		return nil, errors.New("series is nil")
	}
	record := seriesRecord{ID: series.ID, Name: series.Name}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, translateError(err)
	}
	return &domain.Series{ID: record.ID, Name: record.Name}, nil
}

func (r *Repository) GetSeries(ctx context.Context, id int64) (*domain.Series, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record seriesRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrSeriesMissing
		}
		return nil, err
	}
	return &domain.Series{ID: record.ID, Name: record.Name}, nil
}

func (r *Repository) FindSeriesByName(ctx context.Context, name string) (*domain.Series, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []seriesRecord
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Limit(1).Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ports.ErrSeriesMissing
	}
	return &domain.Series{ID: records[0].ID, Name: records[0].Name}, nil
}

func (r *Repository) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []seriesRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*domain.Series, 0, len(records))
	for _, rec := range records {
		list = append(list, &domain.Series{ID: rec.ID, Name: rec.Name})
	}
	return list, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres catalog repository not configured")
	}
	return nil
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ports.ErrDuplicate
	}
	return err
}

func toBookRecord(book *domain.Book) bookRecord {
	return bookRecord{
		ID:        book.ID,
		Title:     book.Title,
		UnitPrice: book.UnitPrice,
		SeriesID:  book.SeriesID,
	}
}

func (r bookRecord) toProjection() *ports.BookProjection {
	return projection.Of(&domain.Book{
		ID:        r.ID,
		Title:     r.Title,
		UnitPrice: r.UnitPrice,
		SeriesID:  r.SeriesID,
	}, r.CreatedAt, r.UpdatedAt)
}
