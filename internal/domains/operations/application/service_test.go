package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/memory"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

const (
	adminID = int64(1)
	aya     = int64(2)
	benoit  = int64(3)
)

// stubCatalog knows books 1 through 10, book n priced at n.
type stubCatalog struct{}

func (stubCatalog) BookExists(_ context.Context, id int64) (bool, error) {
	return id >= 1 && id <= 10, nil
}

func (stubCatalog) GetBook(_ context.Context, id int64) (*ports.Book, error) {
	if id < 1 || id > 10 {
		return nil, ports.ErrCollaboratorNotFound
	}
	return &ports.Book{ID: id, UnitPrice: decimal.NewFromInt(id)}, nil
}

// stubUsers has one admin and customers 2 through 9.
type stubUsers struct{}

func (stubUsers) GetUser(_ context.Context, id int64) (*ports.Actor, error) {
	switch {
	case id == adminID:
		return &ports.Actor{ID: id, Role: ports.RoleAdmin}, nil
	case id >= 2 && id <= 9:
		return &ports.Actor{ID: id, Role: ports.RoleCustomer}, nil
	}
	return nil, ports.ErrCollaboratorNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *Service
	ledger *memory.Ledger
	clock  *clock.Mock
	events *recordingPublisher
}

func newFixture() fixture {
	f := fixture{ledger: memory.NewLedger(), clock: clock.NewMock(), events: &recordingPublisher{}}
	f.clock.Add(time.Date(2025, 9, 7, 9, 0, 0, 0, time.UTC).Sub(f.clock.Now()))
	f.svc = NewService(f.ledger, stubCatalog{}, stubUsers{}, WithClock(f.clock), WithEventPublisher(f.events))
	return f
}

func lines(pairs ...int64) []domain.Line {
	out := make([]domain.Line, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Line{BookID: pairs[i], Quantity: pairs[i+1]})
	}
	return out
}

func requireConflict(t *testing.T, err error, reason string) *domain.ConflictError {
	t.Helper()
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, reason, conflict.Reason)
	return conflict
}

func (f fixture) deliver(t *testing.T, customerID int64, l []domain.Line) *domain.Operation {
	t.Helper()
	ctx := context.Background()
	order, err := f.svc.SubmitOrder(ctx, customerID, l)
	require.NoError(t, err)
	_, err = f.svc.AdvanceOrder(ctx, order.ID)
	require.NoError(t, err)
	delivered, err := f.svc.AdvanceOrder(ctx, order.ID)
	require.NoError(t, err)
	return delivered
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.SubmitOrder(ctx, aya, lines(1, 3, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, f.clock.Now(), order.CreatedAt)

	_, err = f.svc.SubmitOrder(ctx, aya, lines(1, 1))
	requireConflict(t, err, domain.ReasonPendingOrder)

	approved, err := f.svc.AdvanceOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	// Approved orders are ignored by the gate lookup but still count as active.
	gate, err := f.svc.CanRequestDelivery(ctx, aya)
	require.NoError(t, err)
	assert.True(t, gate.Allowed())
	_, err = f.svc.SubmitOrder(ctx, aya, lines(1, 1))
	requireConflict(t, err, domain.ReasonPendingOrder)

	inv, err := f.svc.GetInventory(ctx, aya)
	require.NoError(t, err)
	assert.Empty(t, inv)

	delivered, err := f.svc.AdvanceOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, delivered.Status)

	_, err = f.svc.AdvanceOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inv, err = f.svc.GetInventory(ctx, aya)
	require.NoError(t, err)
	assert.Equal(t, domain.Inventory{1: 3, 3: 2}, inv)

	gate, err = f.svc.CanRequestDelivery(ctx, aya)
	require.NoError(t, err)
	assert.False(t, gate.HasReportedSinceLastOrder)
	assert.Equal(t, domain.ReasonReportRequired, gate.Rejection())
	_, err = f.svc.SubmitOrder(ctx, aya, lines(1, 1))
	requireConflict(t, err, domain.ReasonReportRequired)

	f.clock.Add(time.Hour)
	sale, err := f.svc.SubmitReport(ctx, aya, lines(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(-2), sale.Items[0].Quantity)

	inv, err = f.svc.GetInventory(ctx, aya)
	require.NoError(t, err)
	assert.Equal(t, domain.Inventory{1: 1, 3: 2}, inv)

	_, err = f.svc.SubmitOrder(ctx, aya, lines(2, 5))
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventOrderSubmitted,
		domain.EventOrderAdvanced,
		domain.EventOrderAdvanced,
		domain.EventReportRecorded,
		domain.EventOrderSubmitted,
	}, f.events.types())
}

func TestFirstOrderNeedsNoReport(t *testing.T) {
	f := newFixture()
	gate, err := f.svc.CanRequestDelivery(context.Background(), benoit)
	require.NoError(t, err)
	assert.True(t, gate.HasReportedSinceLastOrder)
	assert.Nil(t, gate.LastOrder)
	assert.True(t, gate.Allowed())
}

func TestGateSkipsCancelledOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.deliver(t, benoit, lines(2, 6))

	order, err := f.svc.SubmitOrder(ctx, benoit, lines(2, 1))
	requireConflict(t, err, domain.ReasonReportRequired)
	assert.Nil(t, order)

	// A cancelled order does not reset the gate: the delivered order still needs a report.
	_, created, err := f.svc.ImportOperation(ctx, &domain.Operation{
		CustomerID: benoit, Type: domain.TypeOrder, Status: domain.StatusCancelled,
		Items: []domain.OperationItem{{BookID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, created)
	_, err = f.svc.SubmitOrder(ctx, benoit, lines(2, 1))
	requireConflict(t, err, domain.ReasonReportRequired)

	_, err = f.svc.SubmitReport(ctx, benoit, lines(2, 1))
	require.NoError(t, err)
	_, err = f.svc.SubmitOrder(ctx, benoit, lines(2, 1))
	require.NoError(t, err)
}

func TestSubmitReportChecksStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.deliver(t, benoit, lines(2, 6, 4, 4))

	_, err := f.svc.SubmitReport(ctx, benoit, lines(2, 7, 4, 4, 5, 1))
	conflict := requireConflict(t, err, domain.ReasonInsufficient)
	require.Len(t, conflict.Items, 2)
	assert.Equal(t, int64(2), conflict.Items[0].BookID)
	assert.Equal(t, int64(6), conflict.Items[0].Available)
	assert.Equal(t, int64(5), conflict.Items[1].BookID)

	ops, err := f.svc.ListOperations(ctx, domain.Filter{CustomerID: benoit, Type: domain.TypeReport})
	require.NoError(t, err)
	assert.Empty(t, ops, "a rejected report writes nothing")

	_, err = f.svc.SubmitReport(ctx, benoit, lines(2, 6, 4, 4))
	require.NoError(t, err)
	inv, err := f.svc.GetInventory(ctx, benoit)
	require.NoError(t, err)
	assert.Empty(t, inv)
}

func TestValidationRunsBeforeStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitReport(ctx, aya, lines(42, 1))
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "sales", validation.Field)
	assert.Equal(t, "Unknown book", validation.Items[0].Message)

	_, err = f.svc.SubmitOrder(ctx, aya, nil)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "books", validation.Field)

	_, err = f.svc.SubmitOrder(ctx, aya, lines(1, 2, 1, 3))
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Book listed more than once", validation.Items[0].Message)
}

func TestOnlyCustomersSubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitOrder(ctx, adminID, lines(1, 1))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.SubmitReport(ctx, adminID, lines(1, 1))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.SubmitOrder(ctx, 99, lines(1, 1))
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Entity)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.svc.SubmitOrder(ctx, aya, lines(1, 1))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, order.ID, benoit, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.svc.CancelOrder(ctx, order.ID, aya, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = f.svc.CancelOrder(ctx, order.ID, aya, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.CancelOrder(ctx, 999, adminID, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := f.svc.GetOperation(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1, "cancelled orders keep their items")

	again, err := f.svc.SubmitOrder(ctx, aya, lines(1, 1))
	require.NoError(t, err)
	_, err = f.svc.AdvanceOrder(ctx, again.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, again.ID, aya, false)
	assert.ErrorIs(t, err, domain.ErrForbidden, "customers cannot cancel approved orders")
	_, err = f.svc.CancelOrder(ctx, again.ID, adminID, true)
	require.NoError(t, err)
}

func TestAdminCancelsDeliveredOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	delivered := f.deliver(t, aya, lines(1, 4))

	_, err := f.svc.CancelOrder(ctx, delivered.ID, adminID, true)
	require.NoError(t, err)

	inv, err := f.svc.GetInventory(ctx, aya)
	require.NoError(t, err)
	assert.Empty(t, inv)
}

func TestDeleteReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.deliver(t, benoit, lines(2, 6))
	sale, err := f.svc.SubmitReport(ctx, benoit, lines(2, 2))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteReport(ctx, sale.ID, benoit), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteReport(ctx, order.ID, adminID), domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteReport(ctx, 999, adminID), domain.ErrNotFound)

	require.NoError(t, f.svc.DeleteReport(ctx, sale.ID, adminID))
	inv, err := f.svc.GetInventory(ctx, benoit)
	require.NoError(t, err)
	assert.Equal(t, domain.Inventory{2: 6}, inv)

	// Without the report the gate closes again.
	gate, err := f.svc.CanRequestDelivery(ctx, benoit)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonReportRequired, gate.Rejection())
	assert.Contains(t, f.events.types(), domain.EventReportDeleted)
}

func TestConcurrentOrdersYieldOneActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var accepted, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := f.svc.SubmitOrder(gctx, aya, lines(1, 1))
			var conflict *domain.ConflictError
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.As(err, &conflict):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), accepted.Load())
	assert.Equal(t, int64(15), rejected.Load())
}

func TestUserStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.deliver(t, benoit, lines(2, 6, 4, 4))
	_, err := f.svc.SubmitReport(ctx, benoit, lines(2, 2, 4, 1))
	require.NoError(t, err)

	stats, err := f.svc.GetUserStats(ctx, benoit)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSales)
	assert.Equal(t, int64(10), stats.TotalDelivered)
	assert.True(t, decimal.NewFromInt(8).Equal(stats.TotalAmount), stats.TotalAmount.String())
	assert.Equal(t, 0.3, stats.DeliveryRatio)

	_, err = f.svc.GetUserStats(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGlobalInventoryAndOverview(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.deliver(t, benoit, lines(2, 6))
	f.deliver(t, aya, lines(2, 1, 5, 2))
	f.clock.Add(24 * time.Hour)
	_, err := f.svc.SubmitReport(ctx, benoit, lines(2, 1))
	require.NoError(t, err)
	_, err = f.svc.SubmitReport(ctx, aya, lines(5, 1))
	require.NoError(t, err)
	pending, err := f.svc.SubmitOrder(ctx, aya, lines(1, 1))
	require.NoError(t, err)

	global, err := f.svc.GetGlobalInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Inventory{2: 6, 5: 1}, global)

	overview, err := f.svc.AdminOverview(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, overview.Actionable, 1)
	assert.Equal(t, pending.ID, overview.Actionable[0].ID)
	require.Len(t, overview.History, 4)
	assert.True(t, overview.History[0].IsOrder())
	assert.True(t, overview.History[3].IsReport())

	reports, err := f.svc.ListOperations(ctx, domain.Filter{Type: domain.TypeReport, CustomerID: aya})
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestImportOperationIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	op := &domain.Operation{
		ID: 102, CustomerID: benoit, Type: domain.TypeOrder, Status: domain.StatusDelivered,
		Items: []domain.OperationItem{{BookID: 2, Quantity: 6}},
	}

	stored, created, err := f.svc.ImportOperation(ctx, op)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(102), stored.ID)
	assert.Equal(t, f.clock.Now(), stored.CreatedAt)

	_, created, err = f.svc.ImportOperation(ctx, op.Clone())
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = f.svc.ImportOperation(ctx, &domain.Operation{CustomerID: benoit, Type: domain.TypeReport, Status: domain.StatusPending,
		Items: []domain.OperationItem{{BookID: 2, Quantity: -1}}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.events.types(), "imports are not published")
}

type failingLedger struct{ err error }

func (l failingLedger) Transact(context.Context, func(ports.UnitOfWork) error) error { return l.err }
func (l failingLedger) View(context.Context, func(ports.UnitOfWork) error) error     { return l.err }

func TestMapError(t *testing.T) {
	svc := NewService(failingLedger{err: ports.ErrActiveOrderExists}, stubCatalog{}, stubUsers{})
	_, err := svc.SubmitOrder(context.Background(), aya, lines(1, 1))
	requireConflict(t, err, domain.ReasonPendingOrder)

	boom := errors.New("connection reset")
	svc = NewService(failingLedger{err: boom}, stubCatalog{}, stubUsers{})
	_, err = svc.GetInventory(context.Background(), aya)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "ledger: connection reset", err.Error())
}

// racingLedger hides the first lookup of an id, as if another import inserted it
// right after the check.
type racingLedger struct {
	*memory.Ledger
	hidden int64
}

func (l *racingLedger) Transact(ctx context.Context, fn func(ports.UnitOfWork) error) error {
	return l.Ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		return fn(&racingUnit{UnitOfWork: uow, ledger: l})
	})
}

type racingUnit struct {
	ports.UnitOfWork
	ledger *racingLedger
}

func (u *racingUnit) Get(ctx context.Context, id int64) (*domain.Operation, error) {
	if id == u.ledger.hidden {
		u.ledger.hidden = 0
		return nil, ports.ErrNotFound
	}
	return u.UnitOfWork.Get(ctx, id)
}

func TestImportOperationLosingRaceReturnsExisting(t *testing.T) {
	ctx := context.Background()
	ledger := &racingLedger{Ledger: memory.NewLedger(), hidden: 102}
	svc := NewService(ledger, stubCatalog{}, stubUsers{})
	require.NoError(t, ledger.Ledger.Transact(ctx, func(uow ports.UnitOfWork) error {
		_, err := uow.Create(ctx, &domain.Operation{
			ID: 102, CustomerID: benoit, Type: domain.TypeOrder, Status: domain.StatusDelivered, CreatedAt: time.Now(),
			Items: []domain.OperationItem{{BookID: 2, Quantity: 6}},
		})
		return err
	}))

	stored, created, err := svc.ImportOperation(ctx, &domain.Operation{
		ID: 102, CustomerID: benoit, Type: domain.TypeReport, Status: domain.StatusRecorded,
		Items: []domain.OperationItem{{BookID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.TypeOrder, stored.Type, "the first import wins")
}

// stalledPublisher blocks until its context ends and records why.
type stalledPublisher struct{ done chan error }

func (p stalledPublisher) Publish(ctx context.Context, _ domain.Event) error {
	<-ctx.Done()
	p.done <- ctx.Err()
	return ctx.Err()
}

// hangUpAfterCommit cancels the request context once a transaction commits.
type hangUpAfterCommit struct {
	*memory.Ledger
	cancel context.CancelFunc
}

func (l hangUpAfterCommit) Transact(ctx context.Context, fn func(ports.UnitOfWork) error) error {
	err := l.Ledger.Transact(ctx, fn)
	l.cancel()
	return err
}

func TestPublishIsBoundedAndOutlivesTheRequest(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := stalledPublisher{done: make(chan error, 1)}
	svc := NewService(hangUpAfterCommit{Ledger: f.ledger, cancel: cancel}, stubCatalog{}, stubUsers{},
		WithClock(f.clock), WithEventPublisher(events), WithPublishTimeout(20*time.Millisecond))

	started := time.Now()
	op, err := svc.SubmitOrder(ctx, aya, lines(1, 2))
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.ErrorIs(t, <-events.done, context.DeadlineExceeded, "the publish context ignores the caller's cancellation")

	stored, err := svc.GetOperation(context.Background(), op.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}
