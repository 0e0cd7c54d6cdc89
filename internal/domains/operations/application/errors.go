package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
		forbidden  *domain.ForbiddenError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &conflict), errors.As(err, &notFound), errors.As(err, &forbidden):
		return err
	case errors.Is(err, ports.ErrActiveOrderExists):
		return &domain.ConflictError{Reason: domain.ReasonPendingOrder}
	}
	return fmt.Errorf("ledger: %w", err)
}

func notFoundIfMissing(err error, entity string, id int64) error {
	if errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrCollaboratorNotFound) {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
