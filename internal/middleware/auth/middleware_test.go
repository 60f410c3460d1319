package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/service/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newGate(t *testing.T) (*Gate, *models.User) {
	db := initTestDB(t)
	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		Rotate:        true,
	}
	user := &models.User{
		Email:        "reader@blogsite.com",
		PasswordHash: "irrelevant",
		Role:         "user",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return &Gate{DB: db, Tokens: tokens}, user
}

func newRequest(authHeader string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func requireGateErr(t *testing.T, err error, status int, message string) {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, status, ae.HTTPStatus())
	require.Equal(t, message, ae.Message)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	gate, _ := newGate(t)

	err := gate.RequireAuth(okHandler)(newRequest(""))
	requireGateErr(t, err, 401, "missing token")
}

func TestRequireAuthBadScheme(t *testing.T) {
	gate, user := newGate(t)

	raw, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)

	err = gate.RequireAuth(okHandler)(newRequest("Token " + raw))
	requireGateErr(t, err, 401, "missing token")

	err = gate.RequireAuth(okHandler)(newRequest("Bearer "))
	requireGateErr(t, err, 401, "missing token")
}

func TestRequireAuthInvalidToken(t *testing.T) {
	gate, _ := newGate(t)

	err := gate.RequireAuth(okHandler)(newRequest("Bearer garbage"))
	requireGateErr(t, err, 401, "invalid token")
}

func TestRequireAuthExpiredToken(t *testing.T) {
	gate, user := newGate(t)
	gate.Tokens.AccessTTL = -time.Minute

	raw, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)

	err = gate.RequireAuth(okHandler)(newRequest("Bearer " + raw))
	requireGateErr(t, err, 401, "token expired")
}

func TestRequireAuthDeletedUser(t *testing.T) {
	gate, user := newGate(t)

	raw, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)
	require.NoError(t, gate.DB.Delete(&models.User{}, user.ID).Error)

	err = gate.RequireAuth(okHandler)(newRequest("Bearer " + raw))
	requireGateErr(t, err, 401, "user not found")
}

func TestRequireAuthDeactivatedUser(t *testing.T) {
	gate, user := newGate(t)

	raw, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)

	c := newRequest("Bearer " + raw)
	require.NoError(t, gate.RequireAuth(okHandler)(c))

	// The still-unexpired token stops working the moment the account
	// is deactivated.
	require.NoError(t, gate.DB.Model(user).Update("is_active", false).Error)

	err = gate.RequireAuth(okHandler)(newRequest("Bearer " + raw))
	requireGateErr(t, err, 401, "account deactivated")
}

func TestRequireAuthAttachesUser(t *testing.T) {
	gate, user := newGate(t)

	raw, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)

	c := newRequest("Bearer " + raw)
	handler := gate.RequireAuth(func(c echo.Context) error {
		got := CurrentUser(c)
		require.NotNil(t, got)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, user.Email, got.Email)
		require.Equal(t, user.Role, got.Role)
		// The projection never loads the hash.
		require.Empty(t, got.PasswordHash)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
}

func TestOptionalAuthSwallowsFailures(t *testing.T) {
	gate, user := newGate(t)

	for _, header := range []string{"", "Bearer garbage", "Token abc"} {
		c := newRequest(header)
		handler := gate.OptionalAuth(func(c echo.Context) error {
			require.Nil(t, CurrentUser(c))
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, handler(c))
	}

	raw, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)

	c := newRequest("Bearer " + raw)
	handler := gate.OptionalAuth(func(c echo.Context) error {
		got := CurrentUser(c)
		require.NotNil(t, got)
		require.Equal(t, user.ID, got.ID)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
}

func TestAdminOnly(t *testing.T) {
	gate, user := newGate(t)

	admin := &models.User{
		Email:        "admin@blogsite.com",
		PasswordHash: "irrelevant",
		Role:         "admin",
		IsActive:     true,
	}
	require.NoError(t, gate.DB.Create(admin).Error)

	userToken, err := gate.Tokens.IssueAccessToken(user)
	require.NoError(t, err)
	adminToken, err := gate.Tokens.IssueAccessToken(admin)
	require.NoError(t, err)

	chain := gate.RequireAuth(gate.AdminOnly(okHandler))

	err = chain(newRequest("Bearer " + userToken))
	requireGateErr(t, err, 403, "admin privileges required")

	require.NoError(t, chain(newRequest("Bearer "+adminToken)))
}
