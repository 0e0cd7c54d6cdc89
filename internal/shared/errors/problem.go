// Package errors renders service failures as RFC 7807 problem details: validation
// failures carry per-field messages and per-book item details, conflicts carry the
// offending items, and anything unrecognised becomes an opaque 500.
package errors

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// ProblemDetail is the application/problem+json body (RFC 7807). It doubles as an
// error so handlers can return it through the same path as service errors.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Extensions carries "fields" for validation failures and "items" for per-book rejections.
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail == "" {
		return p.Title
	}
	return p.Title + ": " + p.Detail
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with key set. The receiver's extensions are left untouched.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	maps.Copy(ext, p.Extensions)
	ext[key] = value
	p.Extensions = ext
	return p
}

// Problem type URIs, relative to the responder's base URI.
const (
	TypeValidation   = "/problems/validation-error"
	TypeNotFound     = "/problems/not-found"
	TypeConflict     = "/problems/conflict"
	TypeInternal     = "/problems/internal-error"
	TypeUnauthorized = "/problems/unauthorized"
	TypeForbidden    = "/problems/forbidden"
	TypeBadRequest   = "/problems/bad-request"
)

func template(typ, title string, status int) ProblemDetail {
	return ProblemDetail{Type: typ, Title: title, Status: status}
}

var (
	ErrValidation   = template(TypeValidation, "Validation Error", http.StatusBadRequest)
	ErrBadRequest   = template(TypeBadRequest, "Bad Request", http.StatusBadRequest)
	ErrUnauthorized = template(TypeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	ErrForbidden    = template(TypeForbidden, "Forbidden", http.StatusForbidden)
	ErrNotFound     = template(TypeNotFound, "Resource Not Found", http.StatusNotFound)
	// ErrConflict covers eligibility rejections: an active order, a missing report, short stock.
	ErrConflict = template(TypeConflict, "Conflict", http.StatusConflict)
	ErrInternal = template(TypeInternal, "Internal Server Error", http.StatusInternalServerError)
)

// NewValidationProblem reports messages against field. Items, when non-nil, lists the
// rejected lines so clients can highlight each book.
func NewValidationProblem(field string, messages []string, items any) ProblemDetail {
	problem := ErrValidation.
		WithDetail(fmt.Sprintf("%s: %s", field, strings.Join(messages, "; "))).
		WithExtension("fields", map[string]string{field: strings.Join(messages, "; ")})
	if items != nil {
		problem = problem.WithExtension("items", items)
	}
	return problem
}

// NewNotFoundProblem reports a missing ledger entity, or one that does not accept the requested transition.
func NewNotFoundProblem(entity string, id int64) ProblemDetail {
	return ErrNotFound.
		WithDetail(fmt.Sprintf("%s %d not found", entity, id)).
		WithExtension("resourceType", entity).
		WithExtension("identifier", id)
}

// NewConflictProblem reports an eligibility rejection. Reason is the client-facing
// message; items, when non-nil, names each short book.
func NewConflictProblem(reason string, items any) ProblemDetail {
	problem := ErrConflict.WithDetail(reason)
	if items != nil {
		problem = problem.WithExtension("items", items)
	}
	return problem
}
