package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrCollaboratorNotFound is returned by lookups for unknown ids.
var ErrCollaboratorNotFound = errors.New("not found")

// Book is the catalog view needed by the ledger.
type Book struct {
	ID        int64
	Title     string
	UnitPrice decimal.Decimal
}

// CatalogLookup resolves books.
type CatalogLookup interface {
	BookExists(ctx context.Context, id int64) (bool, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
}

// Actor is the user view needed for ownership and role checks.
type Actor struct {
	ID    int64
	Name  string
	Email string
	Role  string
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// UserLookup resolves users.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*Actor, error)
}
