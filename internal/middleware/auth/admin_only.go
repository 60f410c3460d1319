package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/blogsite/blog-backend/internal/apperr"
)

// AdminOnly composes after RequireAuth and rejects non-admin users.
func (g *Gate) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Unauthenticated("missing token")
		}
		if !user.IsAdmin() {
			return apperr.Forbidden("admin privileges required")
		}
		return next(c)
	}
}
