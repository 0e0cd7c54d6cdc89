package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Apurer/book-distribution-api/internal/domains/users/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

// Service exposes user bounded context use cases.
type Service struct {
	repo     ports.Repository
	sessions ports.SessionStore
}

func NewService(repo ports.Repository, sessions ports.SessionStore) *Service {
	if sessions == nil {
		sessions = ports.NoopSessionStore
	}
	return &Service{repo: repo, sessions: sessions}
}

// Signup registers a customer account.
func (s *Service) Signup(ctx context.Context, input ports.SignupInput) (*domain.User, error) {
	return s.CreateUser(ctx, ports.CreateUserInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     domain.RoleCustomer,
	})
}

func (s *Service) CreateUser(ctx context.Context, input ports.CreateUserInput) (*domain.User, error) {
	user, err := domain.NewUser(input.ID, input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		return nil, mapError(err)
	}
	user.UpdateProfile(input.StoreName, input.Address, input.Phone)
	if err := s.ensureUnique(ctx, user, 0); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, user)
	return saved, mapError(err)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

// UpdateProfile applies self-service changes, re-checking name and email uniqueness case-insensitively.
func (s *Service) UpdateProfile(ctx context.Context, id int64, input ports.ProfileInput) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := user.Rename(*input.Name); err != nil {
			return nil, mapError(err)
		}
	}
	if input.Email != nil {
		if err := user.ChangeEmail(*input.Email); err != nil {
			return nil, mapError(err)
		}
	}
	storeName, address, phone := user.StoreName, user.Address, user.Phone
	if input.StoreName != nil {
		storeName = *input.StoreName
	}
	if input.Address != nil {
		address = *input.Address
	}
	if input.Phone != nil {
		phone = *input.Phone
	}
	user.UpdateProfile(storeName, address, phone)
	if err := s.ensureUnique(ctx, user, user.ID); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, user)
	return saved, mapError(err)
}

// Login verifies credentials and issues an opaque bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return "", nil, mapError(ports.ErrInvalidCredentials)
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ports.ErrNotFound) {
		return "", nil, mapError(ports.ErrInvalidCredentials)
	}
	if err != nil {
		return "", nil, err
	}
	if !user.CheckPassword(password) {
		return "", nil, mapError(ports.ErrInvalidCredentials)
	}
	token := uuid.NewString()
	if err := s.sessions.Save(ctx, token, user.ID); err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, mapError(ports.ErrSessionNotFound)
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, mapError(err)
	}
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, mapError(ports.ErrSessionNotFound)
	}
	return user, err
}

func (s *Service) Logout(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	_ = s.sessions.Delete(ctx, token)
}

func (s *Service) ensureUnique(ctx context.Context, user *domain.User, selfID int64) error {
	if other, err := s.repo.GetByName(ctx, user.Name); err == nil && other.ID != selfID {
		return ports.ErrDuplicate
	} else if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	if other, err := s.repo.GetByEmail(ctx, user.Email); err == nil && other.ID != selfID {
		return ports.ErrDuplicate
	} else if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
