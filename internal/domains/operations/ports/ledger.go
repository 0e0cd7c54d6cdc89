package ports

import (
	"context"
	"errors"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

var ErrNotFound = errors.New("operation not found")

// ErrActiveOrderExists is returned by adapters when the one-active-order constraint rejects a write.
var ErrActiveOrderExists = errors.New("customer already has an active order")

// ErrOperationExists is returned by Create when an explicit id is already taken.
var ErrOperationExists = errors.New("operation id already exists")

// Ledger is the transactional store of operations and their items.
type Ledger interface {
	// Transact runs fn inside one read-write transaction. Returning an error rolls everything back.
	Transact(ctx context.Context, fn func(uow UnitOfWork) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// UnitOfWork is the view of the ledger bound to a single transaction.
type UnitOfWork interface {
	// LockCustomer serialises mutations for one customer until the transaction ends.
	LockCustomer(ctx context.Context, customerID int64) error

	Create(ctx context.Context, op *domain.Operation) (*domain.Operation, error)
	Get(ctx context.Context, id int64) (*domain.Operation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
	// Delete removes the operation and its items.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.Filter) ([]*domain.Operation, error)

	// LatestOrder returns the highest-id order of the customer in one of statuses, or nil.
	LatestOrder(ctx context.Context, customerID int64, statuses ...domain.Status) (*domain.Operation, error)
	ReportExistsAfter(ctx context.Context, customerID, operationID int64) (bool, error)

	Inventory(ctx context.Context, customerID int64) (domain.Inventory, error)
	GlobalInventory(ctx context.Context) (domain.Inventory, error)
	// SoldByBook sums -quantity over negative items, per book.
	SoldByBook(ctx context.Context, customerID int64) (map[int64]int64, error)
	// DeliveredUnits sums quantity over delivered orders.
	DeliveredUnits(ctx context.Context, customerID int64) (int64, error)
}
