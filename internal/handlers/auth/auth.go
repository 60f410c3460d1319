package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/hash"
	"github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/mykafka"
	"github.com/blogsite/blog-backend/internal/service/token"
	"github.com/blogsite/blog-backend/internal/transport"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *mykafka.Producer
	Validate *validator.Validate
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return apperr.Validation(err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	err := h.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return apperr.Validation("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Internal(err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return apperr.Internal(err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: pwHash,
		Role:         "user",
		IsActive:     true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return apperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return transport.OK(c, http.StatusCreated, user)
}

// Login verifies credentials and hands out an access/refresh pair. A
// missing user, an inactive account and a wrong password all produce
// the same 401 so callers cannot probe which emails exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return apperr.Validation(err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthenticated("invalid credentials")
		}
		return apperr.Internal(err)
	}
	if !user.IsActive || !hash.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.Unauthenticated("invalid credentials")
	}

	now := time.Now()
	if err := h.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		return apperr.Internal(err)
	}

	accessToken, err := h.Tokens.IssueAccessToken(&user)
	if err != nil {
		return apperr.Internal(err)
	}
	refreshToken, err := h.Tokens.IssueRefreshToken(&user)
	if err != nil {
		return apperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return transport.OK(c, http.StatusOK, tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	accessToken, refreshToken, _, err := h.Tokens.Refresh(req.RefreshToken)
	if err != nil {
		return err
	}

	return transport.OK(c, http.StatusOK, tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	if err := h.Tokens.Revoke(req.RefreshToken); err != nil {
		return err
	}

	return transport.Message(c, http.StatusOK, "logged out")
}

// ChangePassword rehashes only because the password itself changed;
// nothing else ever triggers a rehash. All outstanding refresh tokens
// are revoked so stolen sessions die with the old password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return apperr.Unauthenticated("missing token")
	}

	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password"     validate:"required,min=8"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return apperr.Validation(err.Error())
	}

	// The gate loads users without the hash; fetch it here.
	var full models.User
	if err := h.DB.First(&full, user.ID).Error; err != nil {
		return apperr.Internal(err)
	}
	if !hash.CheckPassword(full.PasswordHash, req.CurrentPassword) {
		return apperr.Unauthenticated("invalid credentials")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.DB.Model(&full).Update("password_hash", pwHash).Error; err != nil {
		return apperr.Internal(err)
	}

	if err := h.DB.Model(&models.RefreshToken{}).
		Where("user_id = ?", user.ID).
		Update("revoked", true).Error; err != nil {
		return apperr.Internal(err)
	}

	return transport.Message(c, http.StatusOK, "password changed")
}

func (h *AuthHandler) Me(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return apperr.Unauthenticated("missing token")
	}
	return transport.OK(c, http.StatusOK, user)
}
