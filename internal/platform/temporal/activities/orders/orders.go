package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

const (
	// CheckEligibilityActivityName evaluates the delivery gate without writing.
	CheckEligibilityActivityName = "operations.activities.CheckEligibility"
	// SubmitOrderActivityName places the order in one ledger transaction.
	SubmitOrderActivityName = "operations.activities.SubmitOrder"
)

// Activities groups activities that operate on the operations bounded context.
type Activities struct {
	service ports.Service
}

func NewActivities(service ports.Service) *Activities {
	return &Activities{service: service}
}

// CheckEligibility fails fast when the gate already rejects the customer.
// The authoritative check runs again inside SubmitOrder's transaction.
func (a *Activities) CheckEligibility(ctx context.Context, input ports.SubmitOrderInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order activities not initialized", "customerId", input.CustomerID)
		return errors.New("order activities not initialized")
	}
	result, err := a.service.CanRequestDelivery(ctx, input.CustomerID)
	if err != nil {
		logger.Error("CheckEligibility activity failed", "customerId", input.CustomerID, "error", err)
		return EncodeError(err)
	}
	if reason := result.Rejection(); reason != "" {
		logger.Info("CheckEligibility rejected order", "customerId", input.CustomerID, "reason", reason)
		return EncodeError(&domain.ConflictError{Reason: reason})
	}
	return nil
}

// SubmitOrder persists the order and returns it.
func (a *Activities) SubmitOrder(ctx context.Context, input ports.SubmitOrderInput) (*domain.Operation, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order activities not initialized", "customerId", input.CustomerID)
		return nil, errors.New("order activities not initialized")
	}
	logger.Info("SubmitOrder activity started", "customerId", input.CustomerID, "lines", len(input.Lines))
	op, err := a.service.SubmitOrder(ctx, input.CustomerID, input.Lines)
	if err != nil {
		logger.Error("SubmitOrder activity failed", "customerId", input.CustomerID, "error", err)
		return nil, EncodeError(err)
	}
	logger.Info("SubmitOrder activity completed", "operationId", op.ID)
	return op, nil
}
