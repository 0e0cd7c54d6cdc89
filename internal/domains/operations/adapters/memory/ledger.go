package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger is an in-memory ledger. Transactions are serialised by a single lock
// and roll back by restoring a snapshot.
type Ledger struct {
	mu         sync.RWMutex
	ops        map[int64]*domain.Operation
	nextID     int64
	nextItemID int64
}

func NewLedger() *Ledger {
	return &Ledger{ops: map[int64]*domain.Operation{}}
}

func (l *Ledger) Transact(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	if fn == nil {
		return errors.New("transaction function is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := l.snapshot()
	if err := fn(&unitOfWork{ledger: l, writable: true}); err != nil {
		l.restore(snapshot)
		return err
	}
	return nil
}

func (l *Ledger) View(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	if fn == nil {
		return errors.New("view function is nil")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&unitOfWork{ledger: l})
}

type ledgerState struct {
	ops        map[int64]*domain.Operation
	nextID     int64
	nextItemID int64
}

func (l *Ledger) snapshot() ledgerState {
	ops := make(map[int64]*domain.Operation, len(l.ops))
	for id, op := range l.ops {
		ops[id] = op.Clone()
	}
	return ledgerState{ops: ops, nextID: l.nextID, nextItemID: l.nextItemID}
}

func (l *Ledger) restore(state ledgerState) {
	l.ops = state.ops
	l.nextID = state.nextID
	l.nextItemID = state.nextItemID
}

var errReadOnly = errors.New("ledger view is read-only")

type unitOfWork struct {
	ledger   *Ledger
	writable bool
}

// LockCustomer is a no-op: the ledger lock already serialises all writers.
func (u *unitOfWork) LockCustomer(context.Context, int64) error { return nil }

func (u *unitOfWork) Create(_ context.Context, op *domain.Operation) (*domain.Operation, error) {
	if !u.writable {
		return nil, errReadOnly
	}
	if op == nil {
		return nil, errors.New("operation is nil")
	}
	clone := op.Clone()
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	l := u.ledger
	if clone.ID == 0 {
		l.nextID++
		clone.ID = l.nextID
	} else {
		if _, exists := l.ops[clone.ID]; exists {
			return nil, ports.ErrOperationExists
		}
		if clone.ID > l.nextID {
			l.nextID = clone.ID
		}
	}
	if u.breaksActiveOrder(clone.ID, clone.CustomerID, clone.Type, clone.Status) {
		return nil, ports.ErrActiveOrderExists
	}
	for i := range clone.Items {
		l.nextItemID++
		clone.Items[i].ID = l.nextItemID
		clone.Items[i].OperationID = clone.ID
	}
	l.ops[clone.ID] = clone
	return clone.Clone(), nil
}

func (u *unitOfWork) Get(_ context.Context, id int64) (*domain.Operation, error) {
	op, ok := u.ledger.ops[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return op.Clone(), nil
}

func (u *unitOfWork) UpdateStatus(_ context.Context, id int64, status domain.Status) error {
	if !u.writable {
		return errReadOnly
	}
	op, ok := u.ledger.ops[id]
	if !ok {
		return ports.ErrNotFound
	}
	if !domain.ValidStatus(op.Type, status) {
		return errors.New("invalid status for operation type")
	}
	if u.breaksActiveOrder(op.ID, op.CustomerID, op.Type, status) {
		return ports.ErrActiveOrderExists
	}
	op.Status = status
	return nil
}

func (u *unitOfWork) Delete(_ context.Context, id int64) error {
	if !u.writable {
		return errReadOnly
	}
	if _, ok := u.ledger.ops[id]; !ok {
		return ports.ErrNotFound
	}
	delete(u.ledger.ops, id)
	return nil
}

func (u *unitOfWork) List(_ context.Context, filter domain.Filter) ([]*domain.Operation, error) {
	list := make([]*domain.Operation, 0, len(u.ledger.ops))
	for _, op := range u.ledger.ops {
		if filter.Matches(op) {
			list = append(list, op.Clone())
		}
	}
	return list, nil
}

func (u *unitOfWork) LatestOrder(_ context.Context, customerID int64, statuses ...domain.Status) (*domain.Operation, error) {
	filter := domain.Filter{CustomerID: customerID, Type: domain.TypeOrder, Statuses: statuses}
	var latest *domain.Operation
	for _, op := range u.ledger.ops {
		if filter.Matches(op) && (latest == nil || op.ID > latest.ID) {
			latest = op
		}
	}
	return latest.Clone(), nil
}

func (u *unitOfWork) ReportExistsAfter(_ context.Context, customerID, operationID int64) (bool, error) {
	for _, op := range u.ledger.ops {
		if op.CustomerID == customerID && op.IsReport() && op.ID > operationID {
			return true, nil
		}
	}
	return false, nil
}

func (u *unitOfWork) Inventory(_ context.Context, customerID int64) (domain.Inventory, error) {
	return domain.Project(u.customerOps(customerID)), nil
}

func (u *unitOfWork) GlobalInventory(_ context.Context) (domain.Inventory, error) {
	return domain.Project(u.customerOps(0)), nil
}

func (u *unitOfWork) SoldByBook(_ context.Context, customerID int64) (map[int64]int64, error) {
	sold := map[int64]int64{}
	for _, op := range u.customerOps(customerID) {
		for _, item := range op.Items {
			if item.Quantity < 0 {
				sold[item.BookID] += -item.Quantity
			}
		}
	}
	return sold, nil
}

func (u *unitOfWork) DeliveredUnits(_ context.Context, customerID int64) (int64, error) {
	var total int64
	for _, op := range u.customerOps(customerID) {
		if op.IsOrder() && op.Status == domain.StatusDelivered {
			for _, item := range op.Items {
				total += item.Quantity
			}
		}
	}
	return total, nil
}

// customerOps returns live operations of a customer, or of everyone when customerID is zero.
func (u *unitOfWork) customerOps(customerID int64) []*domain.Operation {
	ops := make([]*domain.Operation, 0, len(u.ledger.ops))
	for _, op := range u.ledger.ops {
		if customerID == 0 || op.CustomerID == customerID {
			ops = append(ops, op)
		}
	}
	return ops
}

// breaksActiveOrder mirrors the partial unique index of the SQL schema.
func (u *unitOfWork) breaksActiveOrder(id, customerID int64, t domain.Type, status domain.Status) bool {
	if t != domain.TypeOrder || (status != domain.StatusPending && status != domain.StatusApproved) {
		return false
	}
	for _, op := range u.ledger.ops {
		if op.ID != id && op.CustomerID == customerID && op.IsOrder() &&
			(op.Status == domain.StatusPending || op.Status == domain.StatusApproved) {
			return true
		}
	}
	return false
}
