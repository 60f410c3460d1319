package auth

import (
	"errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/service/token"
)

type Gate struct {
	DB     *gorm.DB
	Tokens *token.Service
}

// RequireAuth verifies the Bearer access token, resolves the user and
// attaches it to the request context. Any failure ends the request with
// a 401.
func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := g.resolve(c)
		if err != nil {
			return err
		}
		setUser(c, user)
		return next(c)
	}
}

// OptionalAuth attaches the user when a valid token is presented and
// silently proceeds without one otherwise. This is the only place auth
// failures are swallowed.
func (g *Gate) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if user, err := g.resolve(c); err == nil {
			setUser(c, user)
		}
		return next(c)
	}
}

func (g *Gate) resolve(c echo.Context) (*models.User, error) {
	raw := bearerToken(c)
	if raw == "" {
		return nil, apperr.Unauthenticated("missing token")
	}

	claims, err := g.Tokens.ParseAccess(raw)
	if err != nil {
		return nil, err
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, apperr.Unauthenticated("invalid token")
	}

	var user models.User
	if err := g.DB.Select(userProjection).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("user not found")
		}
		return nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticated("account deactivated")
	}

	return &user, nil
}
