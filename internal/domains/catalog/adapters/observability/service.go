package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	catalogapp "github.com/Apurer/book-distribution-api/internal/domains/catalog/application"
	catalogdomain "github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
)

const tracerName = "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/observability/service"

// Service decorates the catalog service with tracing, logging, and metrics.
type Service struct {
	inner   catalogports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core catalog service.
func New(inner catalogports.Service, opts ...Option) catalogports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) CreateBook(ctx context.Context, input catalogports.BookInput) (*catalogports.BookProjection, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.CreateBook",
		trace.WithAttributes(attribute.String("book.title", input.Title), attribute.String("book.unit_price", input.UnitPrice.String())))
	defer span.End()

	result, err := s.inner.CreateBook(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create book", slog.String("book.title", input.Title))
	}
	s.metrics.recordBookChange(ctx, "created")
	s.logInfo(ctx, "book created", slog.Int64("book.id", result.Entity.ID), slog.String("book.title", result.Entity.Title))
	return result, nil
}

func (s *Service) UpdateBook(ctx context.Context, id int64, input catalogports.BookInput) (*catalogports.BookProjection, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.UpdateBook", trace.WithAttributes(attribute.Int64("book.id", id)))
	defer span.End()

	result, err := s.inner.UpdateBook(ctx, id, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update book", slog.Int64("book.id", id))
	}
	s.metrics.recordBookChange(ctx, "updated")
	s.logInfo(ctx, "book updated", slog.Int64("book.id", id), slog.String("book.unit_price", result.Entity.UnitPrice.String()))
	return result, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*catalogports.BookProjection, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.GetBook", trace.WithAttributes(attribute.Int64("book.id", id)))
	defer span.End()

	result, err := s.inner.GetBook(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load book", slog.Int64("book.id", id))
	}
	return result, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]*catalogports.BookProjection, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListBooks")
	defer span.End()

	result, err := s.inner.ListBooks(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list books")
	}
	span.SetAttributes(attribute.Int("books.count", len(result)))
	return result, nil
}

// BookExists runs on every order and report line, so it only traces.
func (s *Service) BookExists(ctx context.Context, id int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.BookExists", trace.WithAttributes(attribute.Int64("book.id", id)))
	defer span.End()

	ok, err := s.inner.BookExists(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Bool("book.exists", ok))
	return ok, nil
}

func (s *Service) CreateSeries(ctx context.Context, name string) (*catalogdomain.Series, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.CreateSeries", trace.WithAttributes(attribute.String("series.name", name)))
	defer span.End()

	result, err := s.inner.CreateSeries(ctx, name)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create series", slog.String("series.name", name))
	}
	s.metrics.recordSeriesCreated(ctx)
	s.logInfo(ctx, "series created", slog.Int64("series.id", result.ID), slog.String("series.name", result.Name))
	return result, nil
}

func (s *Service) ListSeries(ctx context.Context) ([]*catalogdomain.Series, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListSeries")
	defer span.End()

	result, err := s.inner.ListSeries(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list series")
	}
	span.SetAttributes(attribute.Int("series.count", len(result)))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger == nil {
		return err
	}
	level := slog.LevelError
	if errors.Is(err, catalogapp.ErrInvalidInput) || errors.Is(err, catalogapp.ErrConflict) || errors.Is(err, catalogports.ErrNotFound) {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, level, msg, attrs...)
	return err
}

type serviceMetrics struct {
	bookChanges   metric.Int64Counter
	seriesCreated metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	bookChanges, _ := m.Int64Counter("catalog.service.book_changes", metric.WithDescription("Number of books created or updated"))
	seriesCreated, _ := m.Int64Counter("catalog.service.series_created", metric.WithDescription("Number of series created"))
	return serviceMetrics{bookChanges: bookChanges, seriesCreated: seriesCreated}
}

func (m serviceMetrics) recordBookChange(ctx context.Context, change string) {
	if m.bookChanges != nil {
		m.bookChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("change", change)))
	}
}

func (m serviceMetrics) recordSeriesCreated(ctx context.Context) {
	if m.seriesCreated != nil {
		m.seriesCreated.Add(ctx, 1)
	}
}

var _ catalogports.Service = (*Service)(nil)
