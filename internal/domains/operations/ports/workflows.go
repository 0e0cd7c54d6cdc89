package ports

import (
	"context"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

// SubmitOrderInput is the durable command for placing a delivery request.
type SubmitOrderInput struct {
	CustomerID     int64
	Lines          []domain.Line
	IdempotencyKey string
}

// WorkflowOrchestrator runs order submission, durably when a workflow engine is available.
type WorkflowOrchestrator interface {
	SubmitOrder(ctx context.Context, input SubmitOrderInput) (*domain.Operation, error)
}
