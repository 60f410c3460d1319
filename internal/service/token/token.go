// Package token owns the full token lifecycle: signing and verifying
// access tokens, issuing persisted refresh tokens, rotation and
// revocation. Access tokens are stateless; refresh tokens are only
// valid while their row exists, is unrevoked and unexpired.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/models"
)

const RefreshTTL = 7 * 24 * time.Hour

type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	Rotate        bool
}

type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad subject claim %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

type refreshClaims struct {
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

func (s *Service) IssueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.AccessTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a refresh token and stores its row. Each call
// appends a new row; concurrent logins for the same user simply end up
// with several outstanding tokens.
func (s *Service) IssueRefreshToken(user *models.User) (string, error) {
	now := time.Now()
	jti := uuid.New()
	claims := refreshClaims{
		Typ: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	row := models.RefreshToken{
		ID:        jti,
		Token:     signed,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(RefreshTTL),
	}
	if err := s.DB.Create(&row).Error; err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	return signed, nil
}

// ParseAccess verifies an access token's signature and expiry. It does
// not touch the database.
func (s *Service) ParseAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	t, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.JWTSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("token expired")
		}
		return nil, apperr.Unauthenticated("invalid token")
	}
	if !t.Valid {
		return nil, apperr.Unauthenticated("invalid token")
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a fresh access token. With
// rotation on, the presented token is revoked and a replacement is
// issued; otherwise the same refresh token is handed back.
func (s *Service) Refresh(raw string) (string, string, *models.User, error) {
	if raw == "" {
		return "", "", nil, apperr.Validation("refresh token required")
	}

	claims := &refreshClaims{}
	t, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.RefreshSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !t.Valid || claims.Typ != "refresh" {
		return "", "", nil, apperr.Unauthenticated("invalid or expired refresh token")
	}

	var stored models.RefreshToken
	if err := s.DB.Where("token = ?", raw).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, apperr.Unauthenticated("invalid refresh token")
		}
		return "", "", nil, apperr.Internal(err)
	}
	if stored.Revoked {
		return "", "", nil, apperr.Unauthenticated("invalid refresh token")
	}
	// The signed exp was already checked above; the row keeps its own
	// expiry so a token is dead even if the store never purged it.
	if time.Now().After(stored.ExpiresAt) {
		return "", "", nil, apperr.Unauthenticated("invalid or expired refresh token")
	}

	var user models.User
	if err := s.DB.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, apperr.Unauthenticated("user not found")
		}
		return "", "", nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return "", "", nil, apperr.Unauthenticated("account deactivated")
	}

	access, err := s.IssueAccessToken(&user)
	if err != nil {
		return "", "", nil, apperr.Internal(err)
	}

	if !s.Rotate {
		return access, raw, &user, nil
	}

	if err := s.DB.Model(&models.RefreshToken{}).
		Where("id = ?", stored.ID).
		Update("revoked", true).Error; err != nil {
		return "", "", nil, apperr.Internal(err)
	}
	refresh, err := s.IssueRefreshToken(&user)
	if err != nil {
		return "", "", nil, apperr.Internal(err)
	}

	return access, refresh, &user, nil
}

// Revoke marks the presented refresh token as revoked. Revoking a token
// that was never stored is not an error.
func (s *Service) Revoke(raw string) error {
	if raw == "" {
		return apperr.Validation("refresh token required")
	}
	if err := s.DB.Model(&models.RefreshToken{}).
		Where("token = ?", raw).
		Update("revoked", true).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// PurgeExpired removes rows whose expiry has passed. Called
// opportunistically; correctness never depends on it.
func (s *Service) PurgeExpired() error {
	return s.DB.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}
