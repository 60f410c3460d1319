package blog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/apperr"
	"github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/models"
	"github.com/blogsite/blog-backend/internal/mykafka"
	"github.com/blogsite/blog-backend/internal/service/search"
	"github.com/blogsite/blog-backend/internal/transport"
	"github.com/blogsite/blog-backend/internal/util"
)

type PostHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
	Validate *validator.Validate
}

type postRequest struct {
	Title   string `json:"title"   validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type postPatchRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (h *PostHandler) publish(c echo.Context, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "post_events", fmt.Sprint(event["postID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// loadPost applies the existence-hiding rule: a draft is a 404 for
// anyone but its author or an admin.
func (h *PostHandler) loadPost(c echo.Context, id int) (*models.Post, error) {
	var post models.Post
	if err := h.DB.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, apperr.Internal(err)
	}

	if !post.Published {
		viewer := auth.CurrentUser(c)
		if viewer == nil || (viewer.ID != post.AuthorID && !viewer.IsAdmin()) {
			return nil, apperr.NotFound("post not found")
		}
	}

	return &post, nil
}

func (h *PostHandler) CreatePost(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return apperr.Unauthenticated("missing token")
	}

	var req postRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return apperr.Validation(err.Error())
	}

	post := models.Post{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: user.ID,
	}
	if err := h.DB.Create(&post).Error; err != nil {
		return apperr.Internal(err)
	}

	h.publish(c, map[string]interface{}{
		"type":   "post_created",
		"postID": post.ID,
		"userID": user.ID,
	})

	return transport.OK(c, http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	// Authors reading their own work don't bump the counter.
	viewer := auth.CurrentUser(c)
	if post.Published && (viewer == nil || viewer.ID != post.AuthorID) {
		if err := h.DB.Model(post).
			UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
			return apperr.Internal(err)
		}
		post.Views++
	}

	var likes int64
	if err := h.DB.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes).Error; err != nil {
		return apperr.Internal(err)
	}

	return transport.OK(c, http.StatusOK, map[string]any{
		"post":  post,
		"likes": likes,
	})
}

func (h *PostHandler) ListPosts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	filter := func() *gorm.DB {
		q := h.DB.Model(&models.Post{}).Where("published = ?", true)
		if author := c.QueryParam("author_id"); author != "" {
			q = q.Where("author_id = ?", author)
		}
		return q
	}

	var total int64
	if err := filter().Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var items []models.Post
	if err := filter().Order("published_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
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

func (h *PostHandler) PatchPost(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	user := auth.CurrentUser(c)
	if user.ID != post.AuthorID && !user.IsAdmin() {
		return apperr.Forbidden("not the author")
	}

	var req postPatchRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Title != nil {
		if *req.Title == "" {
			return apperr.Validation("title cannot be empty")
		}
		post.Title = *req.Title
	}
	if req.Content != nil {
		if *req.Content == "" {
			return apperr.Validation("content cannot be empty")
		}
		post.Content = *req.Content
	}

	if err := h.DB.Save(post).Error; err != nil {
		return apperr.Internal(err)
	}

	if post.Published {
		if err := search.IndexPost(c.Request().Context(), h.ES, h.Index, post); err != nil {
			c.Logger().Errorf("ES index error: %v", err)
		}
	}

	return transport.OK(c, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	user := auth.CurrentUser(c)
	if user.ID != post.AuthorID && !user.IsAdmin() {
		return apperr.Forbidden("not the author")
	}

	if err := h.DB.Delete(&models.Post{}, post.ID).Error; err != nil {
		return apperr.Internal(err)
	}
	h.DB.Where("post_id = ?", post.ID).Delete(&models.Comment{})
	h.DB.Where("post_id = ?", post.ID).Delete(&models.PostLike{})

	if err := search.DeletePost(c.Request().Context(), h.ES, h.Index, post.ID); err != nil {
		c.Logger().Errorf("ES delete error: %v", err)
	}

	h.publish(c, map[string]interface{}{
		"type":   "post_deleted",
		"postID": post.ID,
		"userID": user.ID,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *PostHandler) PublishPost(c echo.Context) error {
	return h.setPublished(c, true)
}

func (h *PostHandler) UnpublishPost(c echo.Context) error {
	return h.setPublished(c, false)
}

func (h *PostHandler) setPublished(c echo.Context, published bool) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid post id")
	}

	post, loadErr := h.loadPost(c, id)
	if loadErr != nil {
		return loadErr
	}

	user := auth.CurrentUser(c)
	if user.ID != post.AuthorID && !user.IsAdmin() {
		return apperr.Forbidden("not the author")
	}

	post.Published = published
	if published {
		now := time.Now()
		post.PublishedAt = &now
	} else {
		post.PublishedAt = nil
	}
	if err := h.DB.Save(post).Error; err != nil {
		return apperr.Internal(err)
	}

	if published {
		if err := search.IndexPost(c.Request().Context(), h.ES, h.Index, post); err != nil {
			c.Logger().Errorf("ES index error: %v", err)
		}
		h.publish(c, map[string]interface{}{
			"type":   "post_published",
			"postID": post.ID,
			"userID": user.ID,
		})
	} else {
		if err := search.DeletePost(c.Request().Context(), h.ES, h.Index, post.ID); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}

	return transport.OK(c, http.StatusOK, post)
}
