//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	"github.com/Apurer/book-distribution-api/internal/platform/dbtest"
)

func TestLedger_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	exerciseLedger(t, dbtest.Postgres(t))
}

func TestLedger_AdvisoryLockSerialisesOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ledger := NewLedger(dbtest.Postgres(t))
	ctx := context.Background()
	errActive := errors.New("active order")

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			err := ledger.Transact(gctx, func(uow ports.UnitOfWork) error {
				if err := uow.LockCustomer(gctx, 2); err != nil {
					return err
				}
				active, err := uow.LatestOrder(gctx, 2, domain.ActiveOrderStatuses...)
				if err != nil {
					return err
				}
				if active != nil {
					return errActive
				}
				_, err = uow.Create(gctx, newOp(2, domain.TypeOrder, domain.StatusPending, domain.OperationItem{BookID: 1, Quantity: 1}))
				return err
			})
			switch {
			case err == nil:
				created.Add(1)
				return nil
			case errors.Is(err, errActive), errors.Is(err, ports.ErrActiveOrderExists):
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), created.Load())
}

func TestLedger_ExplicitIDsMoveSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ledger := NewLedger(dbtest.Postgres(t))

	seeded := newOp(3, domain.TypeReport, domain.StatusRecorded, domain.OperationItem{BookID: 2, Quantity: -1})
	seeded.ID = 200
	mustCreate(t, ledger, seeded)

	next := mustCreate(t, ledger, newOp(3, domain.TypeReport, domain.StatusRecorded, domain.OperationItem{BookID: 2, Quantity: -1}))
	assert.Greater(t, next.ID, int64(200))
}
