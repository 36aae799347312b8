package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/blog_api/internal/middleware/logging"
	"github.com/Skotchmaster/blog_api/internal/middleware/security"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/transport"
)

const Version = "1.0.0"

type Deps struct {
	Auth     *AuthHTTP
	Users    *UsersHTTP
	Blogs    *BlogsHTTP
	Likes    *LikesHTTP
	Comments *CommentsHTTP

	Verifier auth.AccessVerifier
	Roles    auth.RoleLookup
	// Ready backs /health/ready; nil means always ready.
	Ready func(ctx context.Context) error
}

// New builds the echo instance with the error handler, validator and
// middleware chain, and registers the routes.
func New(base *slog.Logger, sec security.Options, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = transport.NewValidator()

	e.Pre(security.Pre()...)
	e.Use(loggingmw.RequestLogger(base, loggingmw.WithQuietPrefixes("/api/v1/health")))
	e.Use(security.Common(sec)...)

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	api := e.Group("/api/v1")

	api.GET("", root(Version))
	api.GET("/", root(Version))
	api.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	api.GET("/health/ready", ready(d.Ready))

	authn := auth.Authenticate(d.Verifier)
	anyone := auth.Authorize(d.Roles, models.RoleAdmin, models.RoleUser)
	adminOnly := auth.Authorize(d.Roles, models.RoleAdmin)

	a := api.Group("/auth")
	a.POST("/register", d.Auth.Register)
	a.POST("/login", d.Auth.Login)
	a.POST("/refresh", d.Auth.Refresh)
	a.POST("/logout", d.Auth.Logout, authn)
	a.POST("/logout-all", d.Auth.LogoutAll, authn)

	u := api.Group("/users", authn)
	u.GET("/current", d.Users.Current, anyone)
	u.PUT("/current", d.Users.UpdateCurrent, anyone)
	u.DELETE("/current", d.Users.DeleteCurrent, anyone)
	u.GET("", d.Users.List, adminOnly)
	u.GET("/:userId", d.Users.Get, adminOnly)
	u.DELETE("/:userId", d.Users.Delete, adminOnly)

	b := api.Group("/blogs", authn)
	b.POST("", d.Blogs.Create, adminOnly)
	b.GET("", d.Blogs.List, anyone)
	b.GET("/search", d.Blogs.Search, anyone)
	b.GET("/user/:userId", d.Blogs.ListByAuthor, anyone)
	b.GET("/:slug", d.Blogs.GetBySlug, anyone)
	b.PUT("/:blogId", d.Blogs.Update, adminOnly)
	b.DELETE("/:blogId", d.Blogs.Delete, adminOnly)

	l := api.Group("/likes", authn, anyone)
	l.PUT("/blog/:blogId", d.Likes.Like)
	l.DELETE("/blog/:blogId", d.Likes.Unlike)

	cm := api.Group("/comments", authn, anyone)
	cm.POST("/blog/:blogId", d.Comments.Create)
	cm.GET("/blog/:blogId", d.Comments.ListByBlog)
	cm.DELETE("/:commentId", d.Comments.Delete)
}
