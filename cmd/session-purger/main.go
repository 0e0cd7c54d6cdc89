// Command session-purger deletes expired login sessions. It is meant to run from cron
// against the same POSTGRES_* settings as the API.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/book-distribution-api/internal/app/api"
	userpostgres "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/persistence/postgres"
	platformobservability "github.com/Apurer/book-distribution-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/book-distribution-api/internal/platform/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	obsCfg := platformobservability.ConfigFromEnv("bookdist-session-purger")
	instruments, shutdown, err := platformobservability.Init(ctx, obsCfg)
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = shutdown(context.Background()) }()
	logger := instruments.Logger

	cfg, err := api.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}
	db, closeDB := platformpostgres.Open(ctx, cfg.PostgresDSN, cfg.Pool, logger)
	defer closeDB()
	if db == nil {
		logger.Error("sessions live in postgres; nothing to purge without a database")
		return 1
	}

	purged, err := userpostgres.NewSessionStore(db, cfg.SessionTTL).PurgeExpired(ctx)
	if err != nil {
		logger.Error("failed to purge sessions", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("session purge completed", slog.Int64("sessions.purged", purged), slog.Duration("session.ttl", cfg.SessionTTL))
	return 0
}
