package blog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/transport"
)

// LikePost is idempotent; liking twice leaves a single row.
func (h *PostHandler) LikePost(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	user := auth.CurrentUser(c)
	like := models.PostLike{PostID: post.ID, UserID: user.ID}
	if err := h.DB.Where(&like).FirstOrCreate(&like).Error; err != nil {
		return apperr.Internal(err)
	}

	return h.likeCount(c, post.ID)
}

func (h *PostHandler) UnlikePost(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	user := auth.CurrentUser(c)
	if err := h.DB.Where("post_id = ? AND user_id = ?", post.ID, user.ID).
		Delete(&models.PostLike{}).Error; err != nil {
		return apperr.Internal(err)
	}

	return h.likeCount(c, post.ID)
}

func (h *PostHandler) likeCount(c echo.Context, postID uint) error {
	var likes int64
	if err := h.DB.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&likes).Error; err != nil {
		return apperr.Internal(err)
	}
	return transport.OK(c, http.StatusOK, map[string]any{"likes": likes})
}
