package search

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/blogsite/blog-backend/internal/apperr"
	postsearch "github.com/blogsite/blog-backend/internal/service/search"
	"github.com/blogsite/blog-backend/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func NewSearchHandler(es *elasticsearch.Client, index string) *SearchHandler {
	return &SearchHandler{ES: es, Index: index}
}

func (h *SearchHandler) Handler(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return apperr.Validation("query required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, posts, err := postsearch.Search(c.Request().Context(), h.ES, h.Index, q, from, size)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    posts,
		"meta":    map[string]any{"total": total, "from": from, "size": size},
	})
}
