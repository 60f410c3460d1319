package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/blogsite/blog-backend/internal/models"
)

const userContextKey = "user"

// userProjection keeps the password hash out of anything loaded for a
// request context.
var userProjection = []string{"id", "email", "role", "is_active", "last_login_at", "created_at", "updated_at"}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func setUser(c echo.Context, u *models.User) {
	c.Set(userContextKey, u)
}

// CurrentUser returns the user attached by RequireAuth or OptionalAuth,
// or nil when the request is anonymous.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userContextKey).(*models.User)
	return u
}
