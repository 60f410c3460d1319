package blog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/transport"
	"github.com/blogsite/blog-backend/internal/util"
)

func (h *PostHandler) ListComments(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	var items []models.Comment
	if err := h.DB.Where("post_id = ?", post.ID).
		Order("created_at ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}

	return transport.OK(c, http.StatusOK, items)
}

func (h *PostHandler) CreateComment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperr.Validation("comment body required")
	}

	user := auth.CurrentUser(c)
	comment := models.Comment{
		PostID: post.ID,
		UserID: user.ID,
		Body:   req.Body,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return apperr.Internal(err)
	}

	return transport.OK(c, http.StatusCreated, comment)
}

func (h *PostHandler) DeleteComment(c echo.Context) error {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}
	commentID, err := strconv.Atoi(c.Param("commentID"))
	if err != nil {
		return apperr.Validation("invalid comment id")
	}

	if _, loadErr := h.loadPost(c, postID); loadErr != nil {
		return loadErr
	}

	var comment models.Comment
	if err := h.DB.Where("id = ? AND post_id = ?", commentID, postID).
		First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("comment not found")
		}
		return apperr.Internal(err)
	}

	user := auth.CurrentUser(c)
	if user.ID != comment.UserID && !user.IsAdmin() {
		return apperr.Forbidden("not the author")
	}

	if err := h.DB.Delete(&comment).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.NoContent(http.StatusNoContent)
}
