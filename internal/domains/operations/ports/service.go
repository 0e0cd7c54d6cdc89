package ports

import (
	"context"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

// Eligibility is the outcome of the delivery gate for a customer.
type Eligibility struct {
	HasReportedSinceLastOrder bool
	LastOrder                 *domain.Operation
}

// Allowed reports whether the literal gate accepts a new order.
func (e Eligibility) Allowed() bool {
	return e.Rejection() == ""
}

// Rejection returns the reason the gate rejects a new order, or "".
func (e Eligibility) Rejection() string {
	if e.LastOrder == nil {
		return ""
	}
	if e.LastOrder.Status == domain.StatusPending {
		return domain.ReasonPendingOrder
	}
	if !e.HasReportedSinceLastOrder {
		return domain.ReasonReportRequired
	}
	return ""
}

// Service exposes the operations use cases to adapters.
type Service interface {
	SubmitOrder(ctx context.Context, customerID int64, lines []domain.Line) (*domain.Operation, error)
	AdvanceOrder(ctx context.Context, orderID int64) (*domain.Operation, error)
	CancelOrder(ctx context.Context, orderID, actorID int64, isAdmin bool) (*domain.Operation, error)
	SubmitReport(ctx context.Context, customerID int64, lines []domain.Line) (*domain.Operation, error)
	DeleteReport(ctx context.Context, reportID, actorID int64) error
	GetOperation(ctx context.Context, id int64) (*domain.Operation, error)
	ListOperations(ctx context.Context, filter domain.Filter) ([]*domain.Operation, error)
	AdminOverview(ctx context.Context, filter domain.Filter) (domain.Overview, error)
	GetInventory(ctx context.Context, customerID int64) (domain.Inventory, error)
	GetGlobalInventory(ctx context.Context) (domain.Inventory, error)
	GetUserStats(ctx context.Context, userID int64) (domain.UserStats, error)
	CanRequestDelivery(ctx context.Context, customerID int64) (Eligibility, error)
	ImportOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, bool, error)
}
