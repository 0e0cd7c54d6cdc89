package orders

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	"github.com/Apurer/book-distribution-api/internal/platform/temporal/sequences"
)

const (
	// OrderSubmissionWorkflowName is the public identifier for registering the workflow.
	OrderSubmissionWorkflowName = "operations.workflows.OrderSubmission"
	// OrderSubmissionTaskQueue is the queue consumed by the worker processing order workflows.
	OrderSubmissionTaskQueue = "ORDER_SUBMISSION"
)

// OrderSubmissionWorkflowInput captures the payload required to place a delivery request.
type OrderSubmissionWorkflowInput struct {
	Command ports.SubmitOrderInput
	TraceID string
}

// OrderSubmissionWorkflow places one delivery request.
func OrderSubmissionWorkflow(ctx workflow.Context, input OrderSubmissionWorkflowInput) (*domain.Operation, error) {
	logger := workflow.GetLogger(ctx)
	customerID := input.Command.CustomerID
	logger.Info("OrderSubmissionWorkflow started", withTraceID(input.TraceID, "customerId", customerID)...)
	op, err := sequences.RunOrderSubmissionSequence(ctx, input.Command)
	if err != nil {
		logger.Error("OrderSubmissionWorkflow failed", withTraceID(input.TraceID, "customerId", customerID, "error", err)...)
		return nil, err
	}
	logger.Info("OrderSubmissionWorkflow completed", withTraceID(input.TraceID, "operationId", op.ID)...)
	return op, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
