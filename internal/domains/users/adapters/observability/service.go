package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	userdomain "github.com/Apurer/book-distribution-api/internal/domains/users/domain"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

const tracerName = "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/observability/service"

// Service decorates the user service with tracing, logging, and metrics.
type Service struct {
	inner   userports.Service
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

// New wraps the core user service.
func New(inner userports.Service, opts ...Option) userports.Service {
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

func (s *Service) Signup(ctx context.Context, input userports.SignupInput) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Signup", trace.WithAttributes(attribute.String("user.name", input.Name)))
	defer span.End()
	user, err := s.inner.Signup(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "signup failed", slog.String("name", input.Name))
	}
	s.metrics.recordCreated(ctx)
	s.logInfo(ctx, "customer signed up", slog.Int64("userId", user.ID))
	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, input userports.CreateUserInput) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.CreateUser", trace.WithAttributes(
		attribute.String("user.name", input.Name),
		attribute.String("user.role", string(input.Role)),
	))
	defer span.End()
	user, err := s.inner.CreateUser(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create user", slog.String("name", input.Name))
	}
	s.metrics.recordCreated(ctx)
	s.logInfo(ctx, "user created", slog.Int64("userId", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetUser", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()
	return s.inner.GetUser(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetByEmail")
	defer span.End()
	return s.inner.GetByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.List")
	defer span.End()
	return s.inner.List(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, input userports.ProfileInput) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.UpdateProfile", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()
	user, err := s.inner.UpdateProfile(ctx, id, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update profile", slog.Int64("userId", id))
	}
	s.metrics.recordUpdated(ctx)
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, *userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Login")
	defer span.End()
	token, user, err := s.inner.Login(ctx, email, password)
	if err != nil {
		return "", nil, s.handleError(ctx, span, err, "login failed")
	}
	s.metrics.recordLogin(ctx)
	s.logInfo(ctx, "user logged in", slog.Int64("userId", user.ID))
	return token, user, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Authenticate")
	defer span.End()
	user, err := s.inner.Authenticate(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	return user, nil
}

func (s *Service) Logout(ctx context.Context, token string) {
	ctx, span := s.tracer.Start(ctx, "UserService.Logout")
	defer span.End()
	s.inner.Logout(ctx, token)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

type serviceMetrics struct {
	usersCreated metric.Int64Counter
	usersUpdated metric.Int64Counter
	logins       metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	created, _ := m.Int64Counter("users.service.created", metric.WithDescription("Number of users created"))
	updated, _ := m.Int64Counter("users.service.profile_updates", metric.WithDescription("Number of profile updates"))
	logins, _ := m.Int64Counter("users.service.logins", metric.WithDescription("Number of successful logins"))
	return serviceMetrics{usersCreated: created, usersUpdated: updated, logins: logins}
}

func (m serviceMetrics) recordCreated(ctx context.Context) {
	if m.usersCreated != nil {
		m.usersCreated.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordUpdated(ctx context.Context) {
	if m.usersUpdated != nil {
		m.usersUpdated.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordLogin(ctx context.Context) {
	if m.logins != nil {
		m.logins.Add(ctx, 1)
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ userports.Service = (*Service)(nil)
