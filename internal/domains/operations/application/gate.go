package application

import (
	"context"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

// eligibility reads the gate facts inside the caller's transaction.
// The last order is looked up among pending and delivered orders only, by id.
func eligibility(ctx context.Context, uow ports.UnitOfWork, customerID int64) (ports.Eligibility, error) {
	last, err := uow.LatestOrder(ctx, customerID, domain.GateStatuses...)
	if err != nil {
		return ports.Eligibility{}, err
	}
	if last == nil {
		return ports.Eligibility{HasReportedSinceLastOrder: true}, nil
	}
	reported, err := uow.ReportExistsAfter(ctx, customerID, last.ID)
	if err != nil {
		return ports.Eligibility{}, err
	}
	return ports.Eligibility{HasReportedSinceLastOrder: reported, LastOrder: last}, nil
}

// checkOrderAllowed applies the gate plus the active-order guard.
func checkOrderAllowed(ctx context.Context, uow ports.UnitOfWork, customerID int64) error {
	active, err := uow.LatestOrder(ctx, customerID, domain.ActiveOrderStatuses...)
	if err != nil {
		return err
	}
	if active != nil {
		return &domain.ConflictError{Reason: domain.ReasonPendingOrder}
	}
	gate, err := eligibility(ctx, uow, customerID)
	if err != nil {
		return err
	}
	if reason := gate.Rejection(); reason != "" {
		return &domain.ConflictError{Reason: reason}
	}
	return nil
}

// checkReportAllowed rejects any line exceeding current stock.
func checkReportAllowed(ctx context.Context, uow ports.UnitOfWork, req domain.OperationRequest) error {
	inv, err := uow.Inventory(ctx, req.CustomerID)
	if err != nil {
		return err
	}
	return req.CheckStock(inv)
}
