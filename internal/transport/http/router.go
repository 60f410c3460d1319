package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"

	authhdl "github.com/blogsite/blog-backend/internal/handlers/auth"
	"github.com/blogsite/blog-backend/internal/handlers/blog"
	"github.com/blogsite/blog-backend/internal/handlers/search"
	"github.com/blogsite/blog-backend/internal/handlers/users"
	authmw "github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/middleware/ratelimit"
)

type Deps struct {
	Gate          *authmw.Gate
	Limiter       *ratelimit.RedisLimiter
	AuthHandler   *authhdl.AuthHandler
	PostHandler   *blog.PostHandler
	UserHandler   *users.UserHandler
	SearchHandler *search.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register, d.Limiter.Middleware("register", 10, time.Minute))
	authGroup.POST("/login", d.AuthHandler.Login, d.Limiter.Middleware("login", 10, time.Minute))
	authGroup.POST("/refresh", d.AuthHandler.Refresh)
	authGroup.POST("/logout", d.AuthHandler.Logout)
	authGroup.GET("/me", d.AuthHandler.Me, d.Gate.RequireAuth)
	authGroup.PATCH("/password", d.AuthHandler.ChangePassword, d.Gate.RequireAuth)

	posts := v1.Group("/posts")
	posts.GET("", d.PostHandler.ListPosts)
	posts.GET("/:id", d.PostHandler.GetPost, d.Gate.OptionalAuth)
	posts.POST("", d.PostHandler.CreatePost, d.Gate.RequireAuth)
	posts.PATCH("/:id", d.PostHandler.PatchPost, d.Gate.RequireAuth)
	posts.DELETE("/:id", d.PostHandler.DeletePost, d.Gate.RequireAuth)
	posts.POST("/:id/publish", d.PostHandler.PublishPost, d.Gate.RequireAuth)
	posts.POST("/:id/unpublish", d.PostHandler.UnpublishPost, d.Gate.RequireAuth)
	posts.POST("/:id/like", d.PostHandler.LikePost, d.Gate.RequireAuth)
	posts.DELETE("/:id/like", d.PostHandler.UnlikePost, d.Gate.RequireAuth)
	posts.GET("/:id/comments", d.PostHandler.ListComments, d.Gate.OptionalAuth)
	posts.POST("/:id/comments", d.PostHandler.CreateComment, d.Gate.RequireAuth)
	posts.DELETE("/:id/comments/:commentID", d.PostHandler.DeleteComment, d.Gate.RequireAuth)

	v1.GET("/search", d.SearchHandler.Handler)

	admin := v1.Group("/admin", d.Gate.RequireAuth, d.Gate.AdminOnly)
	admin.GET("/users", d.UserHandler.ListUsers)
	admin.PATCH("/users/:id/active", d.UserHandler.SetActive)
}
