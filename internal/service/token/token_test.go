package token

import (
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/models"
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

func newService(t *testing.T) (*Service, *models.User) {
	db := initTestDB(t)
	svc := &Service{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		Rotate:        true,
	}
	user := &models.User{
		Email:        "writer@blogsite.com",
		PasswordHash: "irrelevant",
		Role:         "user",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return svc, user
}

func requireAppErr(t *testing.T, err error, status int, message string) {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, status, ae.HTTPStatus())
	require.Equal(t, message, ae.Message)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, user := newService(t)

	raw, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := svc.ParseAccess(raw)
	require.NoError(t, err)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.Role, claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, user.ID, id)
}

func TestAccessTokenExpired(t *testing.T) {
	svc, user := newService(t)
	svc.AccessTTL = -time.Minute

	raw, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = svc.ParseAccess(raw)
	requireAppErr(t, err, 401, "token expired")
}

func TestAccessTokenTampered(t *testing.T) {
	svc, user := newService(t)

	raw, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = svc.ParseAccess(tampered)
	requireAppErr(t, err, 401, "invalid token")
}

func TestAccessTokenWrongSecret(t *testing.T) {
	svc, user := newService(t)

	other := &Service{JWTSecret: []byte("another-secret"), AccessTTL: time.Minute}
	raw, err := other.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = svc.ParseAccess(raw)
	requireAppErr(t, err, 401, "invalid token")
}

func TestRefreshTokenNotAcceptedAsAccess(t *testing.T) {
	svc, user := newService(t)

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	// Distinct signing secrets keep the two token kinds apart.
	_, err = svc.ParseAccess(refresh)
	requireAppErr(t, err, 401, "invalid token")
}

func TestRefreshRotation(t *testing.T) {
	svc, user := newService(t)

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	access, newRefresh, gotUser, err := svc.Refresh(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, refresh, newRefresh)
	require.Equal(t, user.ID, gotUser.ID)

	claims, err := svc.ParseAccess(access)
	require.NoError(t, err)
	require.Equal(t, user.Email, claims.Email)

	// The rotated-out token is revoked even though its signature
	// still verifies.
	_, _, _, err = svc.Refresh(refresh)
	requireAppErr(t, err, 401, "invalid refresh token")

	// The replacement works.
	_, _, _, err = svc.Refresh(newRefresh)
	require.NoError(t, err)
}

func TestRefreshLegacyReuse(t *testing.T) {
	svc, user := newService(t)
	svc.Rotate = false

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	_, same, _, err := svc.Refresh(refresh)
	require.NoError(t, err)
	require.Equal(t, refresh, same)

	// Without rotation the same token keeps working.
	_, _, _, err = svc.Refresh(refresh)
	require.NoError(t, err)
}

func TestRefreshRevoked(t *testing.T) {
	svc, user := newService(t)

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(refresh))

	_, _, _, err = svc.Refresh(refresh)
	requireAppErr(t, err, 401, "invalid refresh token")
}

func TestRefreshMissingAndUnknown(t *testing.T) {
	svc, user := newService(t)

	_, _, _, err := svc.Refresh("")
	requireAppErr(t, err, 400, "refresh token required")

	_, _, _, err = svc.Refresh("not-a-token")
	requireAppErr(t, err, 401, "invalid or expired refresh token")

	// Validly signed but never stored (e.g. store wiped).
	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	require.NoError(t, svc.DB.Where("token = ?", refresh).Delete(&models.RefreshToken{}).Error)

	_, _, _, err = svc.Refresh(refresh)
	requireAppErr(t, err, 401, "invalid refresh token")
}

func TestRefreshInactiveUser(t *testing.T) {
	svc, user := newService(t)

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	require.NoError(t, svc.DB.Model(user).Update("is_active", false).Error)

	_, _, _, err = svc.Refresh(refresh)
	requireAppErr(t, err, 401, "account deactivated")
}

func TestRefreshDeletedUser(t *testing.T) {
	svc, user := newService(t)

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	require.NoError(t, svc.DB.Delete(&models.User{}, user.ID).Error)

	_, _, _, err = svc.Refresh(refresh)
	requireAppErr(t, err, 401, "user not found")
}

func TestRefreshRowExpiryIndependentOfClaim(t *testing.T) {
	svc, user := newService(t)

	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	// The signed exp is still a week out; only the stored row is
	// expired. Verification must not trust the store to have purged it.
	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).
		Where("token = ?", refresh).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, _, _, err = svc.Refresh(refresh)
	requireAppErr(t, err, 401, "invalid or expired refresh token")
}

func TestMultipleOutstandingRefreshTokens(t *testing.T) {
	svc, user := newService(t)

	first, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	second, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	var count int64
	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)

	// Revoking one leaves the other alive.
	require.NoError(t, svc.Revoke(first))
	_, _, _, err = svc.Refresh(second)
	require.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	svc, user := newService(t)

	keep, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	dead, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).
		Where("token = ?", dead).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	require.NoError(t, svc.PurgeExpired())

	var count int64
	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var remaining models.RefreshToken
	require.NoError(t, svc.DB.First(&remaining).Error)
	require.Equal(t, keep, remaining.Token)
}
