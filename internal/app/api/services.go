package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	catalogmemory "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/memory"
	catalogobs "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/observability"
	catalogpostgres "github.com/Apurer/book-distribution-api/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/Apurer/book-distribution-api/internal/domains/catalog/application"
	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	opevents "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/events"
	oplookup "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/lookup"
	opmemory "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/memory"
	opobs "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/observability"
	oppostgres "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/persistence/postgres"
	opapp "github.com/Apurer/book-distribution-api/internal/domains/operations/application"
	opports "github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	usermemory "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/memory"
	userobs "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/observability"
	userpostgres "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/persistence/postgres"
	userapp "github.com/Apurer/book-distribution-api/internal/domains/users/application"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
	"github.com/Apurer/book-distribution-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/book-distribution-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/book-distribution-api/internal/platform/postgres"
)

// Services is the composed application layer shared by the API, the worker and the seeder.
type Services struct {
	Users      userports.Service
	Catalog    catalogports.Service
	Operations opports.Service
	// Idempotency backs Idempotency-Key replay when orders are submitted inline.
	Idempotency opports.IdempotencyStore
	DB          *gorm.DB
}

type publisherCloser interface {
	opports.EventPublisher
	Close() error
}

// BuildServices wires repositories, decorators and the event publisher. With no reachable
// PostgreSQL every repository falls back to memory. The returned cleanup closes what was opened.
func BuildServices(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Services, func(), error) {
	logger := effectiveLogger(instruments)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, closeDB := connectDatabase(ctx, cfg, logger)
	cleanups = append(cleanups, closeDB)
	if db != nil {
		if err := migrations.Run(db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	var (
		userRepo    userports.Repository
		sessions    userports.SessionStore
		catalogRepo catalogports.Repository
		ledger      opports.Ledger
		keys        opports.IdempotencyStore
	)
	if db != nil {
		userRepo = userpostgres.NewRepository(db)
		sessions = userpostgres.NewSessionStore(db, cfg.SessionTTL)
		catalogRepo = catalogpostgres.NewRepository(db)
		ledger = oppostgres.NewLedger(db)
		keys = oppostgres.NewIdempotencyStore(db)
		logger.Info("repositories configured with postgres")
	} else {
		userRepo = usermemory.NewRepository()
		sessions = usermemory.NewSessionStore(cfg.SessionTTL)
		catalogRepo = catalogmemory.NewRepository()
		ledger = opmemory.NewLedger()
		keys = opmemory.NewIdempotencyStore()
	}

	userService := userobs.New(
		userapp.NewService(userRepo, sessions),
		userobs.WithLogger(logger),
		userobs.WithTracer(instruments.Tracer("internal.users.application")),
		userobs.WithMeter(instruments.Meter("internal.users.application")),
	)
	catalogService := catalogobs.New(
		catalogapp.NewService(catalogRepo),
		catalogobs.WithLogger(logger),
		catalogobs.WithTracer(instruments.Tracer("internal.catalog.application")),
		catalogobs.WithMeter(instruments.Meter("internal.catalog.application")),
	)

	publisher, err := buildPublisher(cfg, instruments, logger)
	if err != nil {
		logger.Warn("event broker unavailable, ledger events are dropped", slog.String("broker", cfg.EventsBroker), slog.String("error", err.Error()))
	}
	opOptions := []opapp.Option{opapp.WithPublishTimeout(cfg.PublishTimeout)}
	if publisher != nil {
		cleanups = append(cleanups, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close event publisher", slog.String("error", err.Error()))
			}
		})
		opOptions = append(opOptions, opapp.WithEventPublisher(publisher))
	}
	operationService := opobs.New(
		opapp.NewService(ledger, oplookup.NewCatalog(catalogService), oplookup.NewUsers(userService), opOptions...),
		opobs.WithLogger(logger),
		opobs.WithTracer(instruments.Tracer("internal.operations.application")),
		opobs.WithMeter(instruments.Meter("internal.operations.application")),
	)

	return &Services{
		Users:       userService,
		Catalog:     catalogService,
		Operations:  operationService,
		Idempotency: keys,
		DB:          db,
	}, cleanup, nil
}

func connectDatabase(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, func()) {
	return platformpostgres.Open(ctx, cfg.PostgresDSN, cfg.Pool, logger)
}

func buildPublisher(cfg Config, instruments *platformobservability.Instruments, logger *slog.Logger) (publisherCloser, error) {
	switch cfg.EventsBroker {
	case BrokerAMQP:
		publisher, err := opevents.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case BrokerKafka:
		var tp trace.TracerProvider
		if instruments != nil {
			tp = instruments.TracerProvider
		}
		publisher, err := opevents.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, ServiceName, tp, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case BrokerNone, "":
		return nil, nil
	default:
		return nil, errors.New("unknown event broker " + cfg.EventsBroker)
	}
}
