package application

import (
	"context"
	"errors"
	"time"

	"github.com/facebookgo/clock"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

// Service implements the order and report lifecycle over the ledger.
type Service struct {
	ledger  ports.Ledger
	catalog ports.CatalogLookup
	users   ports.UserLookup
	clock   clock.Clock
	events  ports.EventPublisher

	publishTimeout time.Duration
}

// DefaultPublishTimeout bounds how long a committed mutation waits on the event publisher.
const DefaultPublishTimeout = 5 * time.Second

// Option customises the service.
type Option func(*Service)

// WithClock injects the time source used for creation timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithEventPublisher forwards committed changes to publisher.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) { s.events = publisher }
}

// WithPublishTimeout overrides DefaultPublishTimeout. Non-positive values are ignored.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func NewService(ledger ports.Ledger, catalog ports.CatalogLookup, users ports.UserLookup, opts ...Option) *Service {
	s := &Service{
		ledger:  ledger,
		catalog: catalog,
		users:   users,
		clock:   clock.New(),
		events:  ports.NoopPublisher,

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.events == nil {
		s.events = ports.NoopPublisher
	}
	return s
}

// SubmitOrder places a pending delivery request once the gate accepts it.
func (s *Service) SubmitOrder(ctx context.Context, customerID int64, lines []domain.Line) (*domain.Operation, error) {
	if err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	req := domain.DeliveryRequest(customerID, lines)
	known, err := s.knownBooks(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := req.ValidateForDelivery(known); err != nil {
		return nil, err
	}
	var created *domain.Operation
	err = s.ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		if err := uow.LockCustomer(ctx, customerID); err != nil {
			return err
		}
		if err := checkOrderAllowed(ctx, uow, customerID); err != nil {
			return err
		}
		op, err := uow.Create(ctx, domain.NewOrder(customerID, req.Lines, s.clock.Now()))
		created = op
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, domain.EventOrderSubmitted, created)
	return created, nil
}

// AdvanceOrder confirms a pending order or marks an approved order delivered.
func (s *Service) AdvanceOrder(ctx context.Context, orderID int64) (*domain.Operation, error) {
	var advanced *domain.Operation
	err := s.ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		op, err := s.lockedOperation(ctx, uow, orderID, "order")
		if err != nil {
			return err
		}
		if err := op.Advance(); err != nil {
			return err
		}
		if err := uow.UpdateStatus(ctx, op.ID, op.Status); err != nil {
			return err
		}
		advanced = op
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, domain.EventOrderAdvanced, advanced)
	return advanced, nil
}

// CancelOrder sets an order to cancelled. The row and its items are kept.
func (s *Service) CancelOrder(ctx context.Context, orderID, actorID int64, isAdmin bool) (*domain.Operation, error) {
	var cancelled *domain.Operation
	err := s.ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		op, err := s.lockedOperation(ctx, uow, orderID, "order")
		if err != nil {
			return err
		}
		if err := op.Cancel(actorID, isAdmin); err != nil {
			return err
		}
		if err := uow.UpdateStatus(ctx, op.ID, op.Status); err != nil {
			return err
		}
		cancelled = op
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, domain.EventOrderCancelled, cancelled)
	return cancelled, nil
}

// SubmitReport records sold units as negative deltas after checking every line against stock.
func (s *Service) SubmitReport(ctx context.Context, customerID int64, lines []domain.Line) (*domain.Operation, error) {
	if err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	req := domain.SaleRequest(customerID, lines)
	known, err := s.knownBooks(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := req.ValidateForSale(known); err != nil {
		return nil, err
	}
	var created *domain.Operation
	err = s.ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		if err := uow.LockCustomer(ctx, customerID); err != nil {
			return err
		}
		if err := checkReportAllowed(ctx, uow, req); err != nil {
			return err
		}
		op, err := uow.Create(ctx, domain.NewReport(customerID, req.Lines, s.clock.Now()))
		created = op
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	s.publish(ctx, domain.EventReportRecorded, created)
	return created, nil
}

// DeleteReport removes a report and its items. Admin only.
func (s *Service) DeleteReport(ctx context.Context, reportID, actorID int64) error {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return notFoundIfMissing(err, "user", actorID)
	}
	if !actor.IsAdmin() {
		return &domain.ForbiddenError{Reason: "only admins can delete reports"}
	}
	var deleted *domain.Operation
	err = s.ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		op, err := s.lockedOperation(ctx, uow, reportID, "report")
		if err != nil {
			return err
		}
		if !op.IsReport() {
			return &domain.NotFoundError{Entity: "report", ID: reportID}
		}
		if err := uow.Delete(ctx, op.ID); err != nil {
			return err
		}
		deleted = op
		return nil
	})
	if err != nil {
		return mapError(err)
	}
	s.publish(ctx, domain.EventReportDeleted, deleted)
	return nil
}

func (s *Service) GetOperation(ctx context.Context, id int64) (*domain.Operation, error) {
	var op *domain.Operation
	err := s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
		var err error
		op, err = uow.Get(ctx, id)
		return notFoundIfMissing(err, "operation", id)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return op, nil
}

// ListOperations returns matching operations in dashboard order.
func (s *Service) ListOperations(ctx context.Context, filter domain.Filter) ([]*domain.Operation, error) {
	var ops []*domain.Operation
	err := s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
		var err error
		ops, err = uow.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	domain.SortForDashboard(ops)
	return ops, nil
}

// AdminOverview splits the listing into actionable orders and history.
func (s *Service) AdminOverview(ctx context.Context, filter domain.Filter) (domain.Overview, error) {
	ops, err := s.ListOperations(ctx, filter)
	if err != nil {
		return domain.Overview{}, err
	}
	return domain.SplitActionable(ops), nil
}

// CanRequestDelivery reports the gate state without mutating anything.
func (s *Service) CanRequestDelivery(ctx context.Context, customerID int64) (ports.Eligibility, error) {
	var result ports.Eligibility
	err := s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
		var err error
		result, err = eligibility(ctx, uow, customerID)
		return err
	})
	if err != nil {
		return ports.Eligibility{}, mapError(err)
	}
	return result, nil
}

// ImportOperation stores a fixture operation with its explicit id and status.
// It reports false without writing when the id already exists.
func (s *Service) ImportOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, bool, error) {
	if op == nil {
		return nil, false, errors.New("operation is nil")
	}
	if err := op.Validate(); err != nil {
		return nil, false, err
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = s.clock.Now()
	}
	var (
		stored  *domain.Operation
		created bool
	)
	err := s.ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		if op.ID != 0 {
			existing, err := uow.Get(ctx, op.ID)
			if err == nil {
				stored = existing
				return nil
			}
			if !errors.Is(err, ports.ErrNotFound) {
				return err
			}
		}
		saved, err := uow.Create(ctx, op)
		if err != nil {
			return err
		}
		stored, created = saved, true
		return nil
	})
	if errors.Is(err, ports.ErrOperationExists) {
		// A concurrent import took the id between the lookup and the insert.
		err = s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
			existing, err := uow.Get(ctx, op.ID)
			stored = existing
			return err
		})
	}
	if err != nil {
		return nil, false, mapError(err)
	}
	return stored, created, nil
}

// lockedOperation loads an operation and takes its customer's lock.
func (s *Service) lockedOperation(ctx context.Context, uow ports.UnitOfWork, id int64, entity string) (*domain.Operation, error) {
	op, err := uow.Get(ctx, id)
	if err != nil {
		return nil, notFoundIfMissing(err, entity, id)
	}
	if err := uow.LockCustomer(ctx, op.CustomerID); err != nil {
		return nil, err
	}
	// Re-read under the lock so the status check sees the latest commit.
	op, err = uow.Get(ctx, id)
	if err != nil {
		return nil, notFoundIfMissing(err, entity, id)
	}
	return op, nil
}

func (s *Service) requireCustomer(ctx context.Context, customerID int64) error {
	actor, err := s.users.GetUser(ctx, customerID)
	if err != nil {
		return notFoundIfMissing(err, "user", customerID)
	}
	if actor.Role != ports.RoleCustomer {
		return &domain.ForbiddenError{Reason: "only customers can submit orders and reports"}
	}
	return nil
}

func (s *Service) knownBooks(ctx context.Context, lines []domain.Line) (domain.BookKnown, error) {
	known := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if line.BookID <= 0 {
			continue
		}
		if _, done := known[line.BookID]; done {
			continue
		}
		ok, err := s.catalog.BookExists(ctx, line.BookID)
		if err != nil {
			return nil, err
		}
		known[line.BookID] = ok
	}
	return func(bookID int64) bool { return known[bookID] }, nil
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, op *domain.Operation) {
	if op == nil {
		return
	}
	// Delivery is best effort; the mutation is already committed, so a caller that
	// hangs up must not cancel it and a stuck broker must not hold the response.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	_ = s.events.Publish(ctx, domain.NewEvent(eventType, op, s.clock.Now()))
}

var _ ports.Service = (*Service)(nil)
