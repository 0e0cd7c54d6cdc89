package mapper

import (
	userdomain "github.com/Apurer/book-distribution-api/internal/domains/users/domain"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

// User is the public user payload. The password hash never leaves the service.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StoreName string `json:"store_name,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Signup is the registration body.
type Signup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login is the credentials body.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned after a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Profile is a partial profile update; absent fields are left untouched.
type Profile struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	StoreName *string `json:"store_name"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
}

func ToSignupInput(body Signup) userports.SignupInput {
	return userports.SignupInput{Name: body.Name, Email: body.Email, Password: body.Password}
}

func ToProfileInput(body Profile) userports.ProfileInput {
	return userports.ProfileInput{
		Name:      body.Name,
		Email:     body.Email,
		StoreName: body.StoreName,
		Address:   body.Address,
		Phone:     body.Phone,
	}
}

// FromDomainUser converts a domain user into a transport representation.
func FromDomainUser(user *userdomain.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		StoreName: user.StoreName,
		Address:   user.Address,
		Phone:     user.Phone,
	}
}

// FromDomainUsers converts a slice of domain users to transport representation.
func FromDomainUsers(users []*userdomain.User) []User {
	result := make([]User, 0, len(users))
	for _, user := range users {
		result = append(result, FromDomainUser(user))
	}
	return result
}
