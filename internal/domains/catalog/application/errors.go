package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/book-distribution-api/internal/domains/catalog/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid catalog input")
	// ErrConflict signals a uniqueness violation.
	ErrConflict = errors.New("catalog conflict")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyTitle) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrEmptySeriesName) ||
		errors.Is(err, ports.ErrSeriesMissing) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, ports.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
