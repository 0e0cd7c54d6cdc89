package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	orderactivities "github.com/Apurer/book-distribution-api/internal/platform/temporal/activities/orders"
)

// RunOrderSubmissionSequence checks the delivery gate and then places the order.
func RunOrderSubmissionSequence(ctx workflow.Context, input ports.SubmitOrderInput) (*domain.Operation, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order submission sequence started", "customerId", input.CustomerID)
	checkOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}
	submitOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
			NonRetryableErrorTypes: []string{
				orderactivities.ErrTypeValidation,
				orderactivities.ErrTypeConflict,
				orderactivities.ErrTypeNotFound,
				orderactivities.ErrTypeForbidden,
			},
		},
	}

	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, checkOptions), orderactivities.CheckEligibilityActivityName, input).Get(ctx, nil)
	if err != nil {
		logger.Info("order submission sequence rejected by gate", "customerId", input.CustomerID, "error", err)
		return nil, err
	}

	var op domain.Operation
	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, submitOptions), orderactivities.SubmitOrderActivityName, input).Get(ctx, &op)
	if err != nil {
		logger.Error("order submission sequence failed", "customerId", input.CustomerID, "error", err)
		return nil, err
	}
	logger.Info("order submission sequence persisted", "operationId", op.ID)
	return &op, nil
}
