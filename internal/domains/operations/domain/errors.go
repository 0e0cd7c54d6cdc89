package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

const (
	ReasonPendingOrder   = "Wait for delivery or cancel existing request first"
	ReasonReportRequired = "A report since last delivery is required"
	ReasonInsufficient   = "Insufficient stock"
	ReasonKeyReused      = "Idempotency-Key already used for a different request"
)

// ItemProblem describes why a single requested line was rejected.
type ItemProblem struct {
	BookID    int64  `json:"book_id"`
	Requested int64  `json:"requested,omitempty"`
	Available int64  `json:"available,omitempty"`
	Message   string `json:"error"`
}

// Shortfall is how many units are missing for the line.
func (p ItemProblem) Shortfall() int64 {
	if p.Requested <= p.Available {
		return 0
	}
	return p.Requested - p.Available
}

// ValidationError reports malformed input attributed to a field.
type ValidationError struct {
	Field    string
	Messages []string
	Items    []ItemProblem
}

func (e *ValidationError) Error() string {
	msgs := append([]string(nil), e.Messages...)
	for _, item := range e.Items {
		msgs = append(msgs, fmt.Sprintf("book %d: %s", item.BookID, item.Message))
	}
	return fmt.Sprintf("%s: %s", e.Field, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports an eligibility rejection.
type ConflictError struct {
	Reason string
	Items  []ItemProblem
}

func (e *ConflictError) Error() string {
	if len(e.Items) == 0 {
		return e.Reason
	}
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("book %d short by %d", item.BookID, item.Shortfall()))
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(parts, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports an absent entity or one that does not accept the requested transition.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError reports a missing role or ownership.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }
