// Package lookup adapts the catalog and users contexts to the collaborator ports of the ledger.
package lookup

import (
	"context"
	"errors"

	catalogports "github.com/Apurer/book-distribution-api/internal/domains/catalog/ports"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

// Catalog resolves books through the catalog service.
type Catalog struct {
	svc catalogports.Service
}

func NewCatalog(svc catalogports.Service) *Catalog {
	return &Catalog{svc: svc}
}

func (c *Catalog) BookExists(ctx context.Context, id int64) (bool, error) {
	return c.svc.BookExists(ctx, id)
}

func (c *Catalog) GetBook(ctx context.Context, id int64) (*ports.Book, error) {
	proj, err := c.svc.GetBook(ctx, id)
	if errors.Is(err, catalogports.ErrNotFound) {
		return nil, ports.ErrCollaboratorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ports.Book{ID: proj.Entity.ID, Title: proj.Entity.Title, UnitPrice: proj.Entity.UnitPrice}, nil
}

// Users resolves actors through the users service.
type Users struct {
	svc userports.Service
}

func NewUsers(svc userports.Service) *Users {
	return &Users{svc: svc}
}

func (u *Users) GetUser(ctx context.Context, id int64) (*ports.Actor, error) {
	user, err := u.svc.GetUser(ctx, id)
	if errors.Is(err, userports.ErrNotFound) {
		return nil, ports.ErrCollaboratorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ports.Actor{ID: user.ID, Name: user.Name, Email: user.Email, Role: string(user.Role)}, nil
}

var (
	_ ports.CatalogLookup = (*Catalog)(nil)
	_ ports.UserLookup    = (*Users)(nil)
)
