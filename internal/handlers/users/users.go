package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/transport"
	"github.com/blogsite/blog-backend/internal/util"
)

// UserHandler serves the admin-only user management routes.
type UserHandler struct {
	DB *gorm.DB
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var items []models.User
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// SetActive flips a user's active flag. Deactivating yourself is a
// business-rule 400, not an auth error.
func (h *UserHandler) SetActive(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	admin := auth.CurrentUser(c)
	if admin != nil && admin.ID == uint(id) && !req.IsActive {
		return apperr.Validation("cannot deactivate your own account")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}

	if err := h.DB.Model(&user).Update("is_active", req.IsActive).Error; err != nil {
		return apperr.Internal(err)
	}
	user.IsActive = req.IsActive

	return transport.OK(c, http.StatusOK, user)
}
