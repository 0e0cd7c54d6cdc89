package domain

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyName     = errors.New("name is required")
	ErrEmptyPassword = errors.New("password is required")
	ErrInvalidEmail  = errors.New("email must contain '@'")
	ErrWeakPassword  = errors.New("password must be at least 4 characters")
	ErrInvalidRole   = errors.New("role must be customer or admin")
)

// Role grants access to customer or admin actions.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// PasswordCost is the bcrypt cost used for new credentials.
var PasswordCost = bcrypt.DefaultCost

// User is a distributor account: a customer store or an administrator.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	StoreName    string
	Address      string
	Phone        string
}

// NewUser builds a user ensuring required invariants and hashing the password.
func NewUser(id int64, name, email, password string, role Role) (*User, error) {
	user := &User{ID: id}
	if err := user.Rename(name); err != nil {
		return nil, err
	}
	if err := user.ChangeEmail(email); err != nil {
		return nil, err
	}
	if err := user.SetRole(role); err != nil {
		return nil, err
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	return user, nil
}

// Rename trims and validates the display name.
func (u *User) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	u.Name = name
	return nil
}

// ChangeEmail trims and validates the email, stored lower-cased.
func (u *User) ChangeEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	u.Email = email
	return nil
}

// SetRole validates the role; empty defaults to customer.
func (u *User) SetRole(role Role) error {
	if role == "" {
		role = RoleCustomer
	}
	if role != RoleCustomer && role != RoleAdmin {
		return ErrInvalidRole
	}
	u.Role = role
	return nil
}

// SetPassword validates basic strength and stores a bcrypt hash.
func (u *User) SetPassword(password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < 4 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// UpdateProfile applies the optional store fields.
func (u *User) UpdateProfile(storeName, address, phone string) {
	u.StoreName = strings.TrimSpace(storeName)
	u.Address = strings.TrimSpace(address)
	u.Phone = strings.TrimSpace(phone)
}

// CheckPassword compares the supplied credentials with the stored hash.
func (u *User) CheckPassword(password string) bool {
	password = strings.TrimSpace(password)
	if password == "" || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Validate re-applies core invariants for persistence.
func (u *User) Validate() error {
	if err := u.Rename(u.Name); err != nil {
		return err
	}
	if err := u.ChangeEmail(u.Email); err != nil {
		return err
	}
	if err := u.SetRole(u.Role); err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return ErrEmptyPassword
	}
	return nil
}

// SameName compares names case-insensitively.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
