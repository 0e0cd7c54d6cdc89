package orders

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
)

// Application error types carried across the workflow boundary.
const (
	ErrTypeValidation = "Validation"
	ErrTypeConflict   = "Conflict"
	ErrTypeNotFound   = "NotFound"
	ErrTypeForbidden  = "Forbidden"
)

// EncodeError turns business errors into non-retryable application errors that keep
// their details. Infrastructure errors pass through and are retried.
func EncodeError(err error) error {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
		forbidden  *domain.ForbiddenError
	)
	switch {
	case errors.As(err, &validation):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err, *validation)
	case errors.As(err, &conflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeConflict, err, *conflict)
	case errors.As(err, &notFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err, *notFound)
	case errors.As(err, &forbidden):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeForbidden, err, *forbidden)
	}
	return err
}

// DecodeError restores the business error from a workflow or activity failure.
// Errors of any other shape are returned unchanged.
func DecodeError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case ErrTypeValidation:
		var out domain.ValidationError
		if appErr.Details(&out) == nil {
			return &out
		}
	case ErrTypeConflict:
		var out domain.ConflictError
		if appErr.Details(&out) == nil {
			return &out
		}
	case ErrTypeNotFound:
		var out domain.NotFoundError
		if appErr.Details(&out) == nil {
			return &out
		}
	case ErrTypeForbidden:
		var out domain.ForbiddenError
		if appErr.Details(&out) == nil {
			return &out
		}
	}
	return err
}
