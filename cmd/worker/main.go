package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/book-distribution-api/internal/app/api"
	platformobservability "github.com/Apurer/book-distribution-api/internal/platform/observability"
	orderactivities "github.com/Apurer/book-distribution-api/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/book-distribution-api/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "bookdist-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.ConfigFromEnv(serviceName))
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := api.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	services, cleanup, err := api.BuildServices(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to build services", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()
	activities := orderactivities.NewActivities(services.Operations)

	temporalClient, err := api.ConnectTemporal(cfg, instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderSubmissionTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderSubmissionWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderSubmissionWorkflowName})
	w.RegisterActivityWithOptions(activities.CheckEligibility, activity.RegisterOptions{Name: orderactivities.CheckEligibilityActivityName})
	w.RegisterActivityWithOptions(activities.SubmitOrder, activity.RegisterOptions{Name: orderactivities.SubmitOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderSubmissionTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
