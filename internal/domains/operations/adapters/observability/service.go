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

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

const tracerName = "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/observability/service"

// Service decorates the operations service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.metrics = newServiceMetrics(m) }
}

// New wraps the core operations service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
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
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) SubmitOrder(ctx context.Context, customerID int64, lines []domain.Line) (*domain.Operation, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.SubmitOrder", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int("order.lines", len(lines)),
	))
	defer span.End()
	op, err := s.inner.SubmitOrder(ctx, customerID, lines)
	if err != nil {
		s.metrics.recordRejected(ctx, "order", err)
		return nil, s.handleError(ctx, span, err, "order rejected", slog.Int64("customerId", customerID))
	}
	span.SetAttributes(attribute.Int64("operation.id", op.ID))
	s.metrics.recordSubmitted(ctx, domain.TypeOrder)
	s.logInfo(ctx, "order submitted", slog.Int64("operationId", op.ID), slog.Int64("customerId", customerID))
	return op, nil
}

func (s *Service) AdvanceOrder(ctx context.Context, orderID int64) (*domain.Operation, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.AdvanceOrder", trace.WithAttributes(attribute.Int64("operation.id", orderID)))
	defer span.End()
	op, err := s.inner.AdvanceOrder(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to advance order", slog.Int64("operationId", orderID))
	}
	span.SetAttributes(attribute.String("operation.status", string(op.Status)))
	s.metrics.recordTransition(ctx, op.Status)
	s.logInfo(ctx, "order advanced", slog.Int64("operationId", orderID), slog.String("status", string(op.Status)))
	return op, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID, actorID int64, isAdmin bool) (*domain.Operation, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.CancelOrder", trace.WithAttributes(
		attribute.Int64("operation.id", orderID),
		attribute.Int64("actor.id", actorID),
		attribute.Bool("actor.admin", isAdmin),
	))
	defer span.End()
	op, err := s.inner.CancelOrder(ctx, orderID, actorID, isAdmin)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel order", slog.Int64("operationId", orderID))
	}
	s.metrics.recordTransition(ctx, op.Status)
	s.logInfo(ctx, "order cancelled", slog.Int64("operationId", orderID), slog.Int64("actorId", actorID))
	return op, nil
}

func (s *Service) SubmitReport(ctx context.Context, customerID int64, lines []domain.Line) (*domain.Operation, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.SubmitReport", trace.WithAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int("report.lines", len(lines)),
	))
	defer span.End()
	op, err := s.inner.SubmitReport(ctx, customerID, lines)
	if err != nil {
		s.metrics.recordRejected(ctx, "report", err)
		return nil, s.handleError(ctx, span, err, "report rejected", slog.Int64("customerId", customerID))
	}
	span.SetAttributes(attribute.Int64("operation.id", op.ID))
	s.metrics.recordSubmitted(ctx, domain.TypeReport)
	s.logInfo(ctx, "report recorded", slog.Int64("operationId", op.ID), slog.Int64("customerId", customerID))
	return op, nil
}

func (s *Service) DeleteReport(ctx context.Context, reportID, actorID int64) error {
	ctx, span := s.tracer.Start(ctx, "OperationsService.DeleteReport", trace.WithAttributes(
		attribute.Int64("operation.id", reportID),
		attribute.Int64("actor.id", actorID),
	))
	defer span.End()
	if err := s.inner.DeleteReport(ctx, reportID, actorID); err != nil {
		return s.handleError(ctx, span, err, "failed to delete report", slog.Int64("operationId", reportID))
	}
	s.logInfo(ctx, "report deleted", slog.Int64("operationId", reportID), slog.Int64("actorId", actorID))
	return nil
}

func (s *Service) GetOperation(ctx context.Context, id int64) (*domain.Operation, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.GetOperation", trace.WithAttributes(attribute.Int64("operation.id", id)))
	defer span.End()
	op, err := s.inner.GetOperation(ctx, id)
	if err != nil {
		return nil, s.traceOnly(span, err)
	}
	return op, nil
}

func (s *Service) ListOperations(ctx context.Context, filter domain.Filter) ([]*domain.Operation, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.ListOperations", trace.WithAttributes(filterAttributes(filter)...))
	defer span.End()
	ops, err := s.inner.ListOperations(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list operations")
	}
	span.SetAttributes(attribute.Int("operations.count", len(ops)))
	return ops, nil
}

func (s *Service) AdminOverview(ctx context.Context, filter domain.Filter) (domain.Overview, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.AdminOverview", trace.WithAttributes(filterAttributes(filter)...))
	defer span.End()
	overview, err := s.inner.AdminOverview(ctx, filter)
	if err != nil {
		return domain.Overview{}, s.handleError(ctx, span, err, "failed to build admin overview")
	}
	span.SetAttributes(
		attribute.Int("operations.actionable", len(overview.Actionable)),
		attribute.Int("operations.history", len(overview.History)),
	)
	return overview, nil
}

func (s *Service) GetInventory(ctx context.Context, customerID int64) (domain.Inventory, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.GetInventory", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()
	inv, err := s.inner.GetInventory(ctx, customerID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to project inventory", slog.Int64("customerId", customerID))
	}
	return inv, nil
}

func (s *Service) GetGlobalInventory(ctx context.Context) (domain.Inventory, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.GetGlobalInventory")
	defer span.End()
	inv, err := s.inner.GetGlobalInventory(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to project global inventory")
	}
	return inv, nil
}

func (s *Service) GetUserStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.GetUserStats", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()
	stats, err := s.inner.GetUserStats(ctx, userID)
	if err != nil {
		return domain.UserStats{}, s.traceOnly(span, err)
	}
	return stats, nil
}

func (s *Service) CanRequestDelivery(ctx context.Context, customerID int64) (ports.Eligibility, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.CanRequestDelivery", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()
	result, err := s.inner.CanRequestDelivery(ctx, customerID)
	if err != nil {
		return ports.Eligibility{}, s.handleError(ctx, span, err, "failed to evaluate delivery gate", slog.Int64("customerId", customerID))
	}
	span.SetAttributes(attribute.Bool("gate.allowed", result.Allowed()))
	return result, nil
}

func (s *Service) ImportOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, bool, error) {
	ctx, span := s.tracer.Start(ctx, "OperationsService.ImportOperation")
	defer span.End()
	stored, created, err := s.inner.ImportOperation(ctx, op)
	if err != nil {
		return nil, false, s.handleError(ctx, span, err, "failed to import operation")
	}
	span.SetAttributes(attribute.Int64("operation.id", stored.ID), attribute.Bool("operation.created", created))
	return stored, created, nil
}

func filterAttributes(filter domain.Filter) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int64("filter.customer_id", filter.CustomerID)}
	if filter.Type != "" {
		attrs = append(attrs, attribute.String("filter.type", string(filter.Type)))
	}
	return attrs
}

// traceOnly marks the span without logging; used for lookups where misses are routine.
func (s *Service) traceOnly(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	level := slog.LevelError
	if isBusinessError(err) {
		level = slog.LevelWarn
	}
	s.log(ctx, level, msg, err, attrs...)
	return err
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}

func isBusinessError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

type serviceMetrics struct {
	submitted   metric.Int64Counter
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	submitted, _ := m.Int64Counter("operations.service.submitted", metric.WithDescription("Number of orders and reports accepted"))
	rejected, _ := m.Int64Counter("operations.service.rejected", metric.WithDescription("Number of orders and reports rejected, by error kind"))
	transitions, _ := m.Int64Counter("operations.service.transitions", metric.WithDescription("Number of order status transitions"))
	return serviceMetrics{submitted: submitted, rejected: rejected, transitions: transitions}
}

func (m serviceMetrics) recordSubmitted(ctx context.Context, t domain.Type) {
	if m.submitted != nil {
		m.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(t))))
	}
}

func (m serviceMetrics) recordRejected(ctx context.Context, kind string, err error) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", kind),
			attribute.String("reason", errorKind(err)),
		))
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ ports.Service = (*Service)(nil)
