package bookdistserver

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	userdomain "github.com/Apurer/book-distribution-api/internal/domains/users/domain"
	apierrors "github.com/Apurer/book-distribution-api/internal/shared/errors"
)

const (
	actorKey     = "bookdist.actor"
	tokenKey     = "bookdist.token"
	bearerScheme = "Bearer "
)

// TokenResolver resolves a bearer token to its user.
type TokenResolver interface {
	Authenticate(ctx context.Context, token string) (*userdomain.User, error)
}

// Authenticator turns the Authorization header into the request actor.
type Authenticator struct {
	tokens TokenResolver
}

func NewAuthenticator(tokens TokenResolver) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) guard(access Access) []gin.HandlerFunc {
	switch access {
	case Public:
		return nil
	case CustomerOnly:
		return []gin.HandlerFunc{a.Authenticate, RequireRole(userdomain.RoleCustomer)}
	case AdminOnly:
		return []gin.HandlerFunc{a.Authenticate, RequireRole(userdomain.RoleAdmin)}
	default:
		return []gin.HandlerFunc{a.Authenticate}
	}
}

// Authenticate aborts with 401 unless the request carries a live session token.
func (a *Authenticator) Authenticate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		abortProblem(c, apierrors.ErrUnauthorized.WithDetail("missing bearer token"))
		return
	}
	if a == nil || a.tokens == nil {
		abortProblem(c, apierrors.ErrUnauthorized.WithDetail("authentication not configured"))
		return
	}
	user, err := a.tokens.Authenticate(c.Request.Context(), token)
	if err != nil {
		abortProblem(c, apierrors.ErrUnauthorized.WithDetail("invalid or expired token"))
		return
	}
	c.Set(actorKey, user)
	c.Set(tokenKey, token)
	c.Next()
}

// RequireRole aborts with 403 unless the authenticated actor holds role.
func RequireRole(role userdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			abortProblem(c, apierrors.ErrUnauthorized)
			return
		}
		if user.Role != role {
			abortProblem(c, apierrors.ErrForbidden.WithDetail(string(role)+" role required"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *userdomain.User {
	value, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := value.(*userdomain.User)
	return user
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > len(bearerScheme) && strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return strings.TrimSpace(header[len(bearerScheme):])
	}
	return ""
}

func abortProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	respondProblem(c, problem)
	c.Abort()
}
