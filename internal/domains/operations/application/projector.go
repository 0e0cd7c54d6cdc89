package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

// GetInventory derives the customer's stock from the ledger on every call.
func (s *Service) GetInventory(ctx context.Context, customerID int64) (domain.Inventory, error) {
	var inv domain.Inventory
	err := s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
		var err error
		inv, err = uow.Inventory(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

// GetGlobalInventory sums stock across all customers.
func (s *Service) GetGlobalInventory(ctx context.Context) (domain.Inventory, error) {
	var inv domain.Inventory
	err := s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
		var err error
		inv, err = uow.GlobalInventory(ctx)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

// GetUserStats values sold units at current catalog prices.
func (s *Service) GetUserStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return domain.UserStats{}, notFoundIfMissing(err, "user", userID)
	}
	var (
		sold      map[int64]int64
		delivered int64
	)
	err := s.ledger.View(ctx, func(uow ports.UnitOfWork) error {
		var err error
		if sold, err = uow.SoldByBook(ctx, userID); err != nil {
			return err
		}
		delivered, err = uow.DeliveredUnits(ctx, userID)
		return err
	})
	if err != nil {
		return domain.UserStats{}, mapError(err)
	}
	prices := make(map[int64]decimal.Decimal, len(sold))
	for bookID := range sold {
		book, err := s.catalog.GetBook(ctx, bookID)
		if err != nil {
			return domain.UserStats{}, notFoundIfMissing(err, "book", bookID)
		}
		prices[bookID] = book.UnitPrice
	}
	return domain.ComputeStats(sold, delivered, prices), nil
}
