package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	bookdistserver "github.com/Apurer/book-distribution-api/go"
	opworkflows "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/workflows"
	opports "github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	platformobservability "github.com/Apurer/book-distribution-api/internal/platform/observability"
)

// ServiceName identifies the API in traces, metrics and broker client ids.
const ServiceName = "bookdist-api"

// Run boots the book distribution HTTP API with observability, repositories, and workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.ConfigFromEnv(ServiceName))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	services, cleanup, err := BuildServices(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer cleanup()

	var orderWorkflows opports.WorkflowOrchestrator = opworkflows.NewInlineOrderWorkflows(
		services.Operations,
		opworkflows.WithIdempotencyStore(services.Idempotency),
	)
	if temporalClient, err := ConnectTemporal(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, submitting orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orderWorkflows = opworkflows.NewTemporalOrderWorkflows(
			temporalClient,
			services.Operations,
			opworkflows.WithIdempotencyStore(services.Idempotency),
		)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := NewRouter(cfg, services, orderWorkflows)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("book distribution API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("book distribution API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down book distribution API")
	return server.Shutdown(shutdownCtx)
}

// NewRouter assembles the gin engine with tracing, metrics and every API section.
func NewRouter(cfg Config, services *Services, orderWorkflows opports.WorkflowOrchestrator) *gin.Engine {
	middleware := []gin.HandlerFunc{otelgin.Middleware(ServiceName)}
	var metrics *bookdistserver.HTTPMetrics
	if cfg.MetricsEnabled {
		metrics = bookdistserver.NewHTTPMetrics("bookdist")
		middleware = append(middleware, metrics.Middleware())
	}
	handlers := bookdistserver.ApiHandleFunctions{
		AuthAPI:      bookdistserver.NewAuthAPI(services.Users),
		BookAPI:      bookdistserver.NewBookAPI(services.Catalog),
		OperationAPI: bookdistserver.NewOperationAPI(services.Operations, orderWorkflows),
		AdminAPI:     bookdistserver.NewAdminAPI(services.Operations, services.Users),
	}
	router := bookdistserver.NewRouter(handlers, bookdistserver.NewAuthenticator(services.Users), middleware...)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return router
}

// ConnectTemporal dials Temporal with the tracing interceptor.
func ConnectTemporal(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
