package bookdistserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userhttpmapper "github.com/Apurer/book-distribution-api/internal/domains/users/adapters/http/mapper"
	userports "github.com/Apurer/book-distribution-api/internal/domains/users/ports"
)

// AuthAPI covers registration, sessions and the caller's own profile.
type AuthAPI struct {
	users userports.Service
}

func NewAuthAPI(users userports.Service) AuthAPI {
	return AuthAPI{users: users}
}

// Post /auth/signup
func (api *AuthAPI) Signup(c *gin.Context) {
	var payload userhttpmapper.Signup
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := api.users.Signup(c.Request.Context(), userhttpmapper.ToSignupInput(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userhttpmapper.FromDomainUser(user))
}

// Post /auth/login
func (api *AuthAPI) Login(c *gin.Context) {
	var payload userhttpmapper.Login
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	token, user, err := api.users.Login(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userhttpmapper.Session{Token: token, User: userhttpmapper.FromDomainUser(user)})
}

// Post /auth/logout
func (api *AuthAPI) Logout(c *gin.Context) {
	api.users.Logout(c.Request.Context(), c.GetString(tokenKey))
	c.Status(http.StatusNoContent)
}

// Get /api/me
func (api *AuthAPI) Me(c *gin.Context) {
	c.JSON(http.StatusOK, userhttpmapper.FromDomainUser(currentUser(c)))
}

// Put /api/me/profile
func (api *AuthAPI) UpdateProfile(c *gin.Context) {
	var payload userhttpmapper.Profile
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := api.users.UpdateProfile(c.Request.Context(), currentUser(c).ID, userhttpmapper.ToProfileInput(payload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userhttpmapper.FromDomainUser(user))
}
