package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/book-distribution-api/internal/app/api"
	"github.com/Apurer/book-distribution-api/internal/app/seed"
	"github.com/Apurer/book-distribution-api/internal/platform/migrations"
)

func main() {
	fromJSON := flag.String("from-json", "", "optional path to a JSON seed file; the built-in fixture is used otherwise")
	reset := flag.Bool("reset", false, "DEV ONLY: drop and recreate all tables before seeding")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	// Seeding never publishes; the fixture describes history, not new activity.
	cfg.EventsBroker = api.BrokerNone
	services, cleanup, err := api.BuildServices(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("failed to build services: %v", err)
	}
	defer cleanup()
	if services.DB == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; nothing to seed")
	}

	if *reset {
		logger.Warn("dropping and recreating all tables")
		if err := migrations.Reset(services.DB); err != nil {
			log.Fatalf("failed to reset schema: %v", err)
		}
	}

	fixture := seed.DefaultFixture()
	if *fromJSON != "" {
		logger.Info("loading seed file", slog.String("path", *fromJSON))
		if fixture, err = seed.LoadFile(*fromJSON); err != nil {
			log.Fatalf("failed to load seed file: %v", err)
		}
	}
	if _, err := seed.Load(ctx, seed.Services{
		Users:      services.Users,
		Catalog:    services.Catalog,
		Operations: services.Operations,
	}, fixture, logger); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	if err := migrations.ResyncSequences(services.DB); err != nil {
		log.Fatalf("failed to resync id sequences: %v", err)
	}
}
