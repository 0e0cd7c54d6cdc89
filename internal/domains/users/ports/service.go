package ports

import (
	"context"

	"github.com/Apurer/book-distribution-api/internal/domains/users/domain"
)

// SignupInput carries self-service registration fields.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// CreateUserInput is used by seeding and admin tooling.
type CreateUserInput struct {
	ID        int64
	Name      string
	Email     string
	Password  string
	Role      domain.Role
	StoreName string
	Address   string
	Phone     string
}

// ProfileInput holds optional profile changes; nil fields are left untouched.
type ProfileInput struct {
	Name      *string
	Email     *string
	StoreName *string
	Address   *string
	Phone     *string
}

// Service exposes user bounded context use cases to adapters.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*domain.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, input ProfileInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string)
}
