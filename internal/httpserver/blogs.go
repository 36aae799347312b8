package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/service"
	"github.com/Skotchmaster/blog_api/internal/transport"
)

type BlogsHTTP struct {
	Svc *service.BlogService
	Paging
}

func (h *BlogsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs_create")

	author, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.CreateBlogRequest
	if err := transport.Bind(c, &req); err != nil {
		l.Warn("create_blog_error", "status", 400, "error", err)
		return err
	}

	b, err := h.Svc.Create(ctx, author, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.BlogResponse{Blog: b})
}

func (h *BlogsHTTP) List(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	limit, offset := h.from(c)
	page, err := h.Svc.List(c.Request().Context(), v, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.PageOf(page))
}

func (h *BlogsHTTP) Search(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	limit, offset := h.from(c)
	page, err := h.Svc.Search(c.Request().Context(), v, c.QueryParam("q"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.PageOf(page))
}

func (h *BlogsHTTP) ListByAuthor(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	author, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	limit, offset := h.from(c)
	page, err := h.Svc.ListByAuthor(c.Request().Context(), v, author, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.PageOf(page))
}

func (h *BlogsHTTP) GetBySlug(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	b, err := h.Svc.GetBySlug(c.Request().Context(), v, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.BlogResponse{Blog: b})
}

func (h *BlogsHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs_update")

	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "blogId")
	if err != nil {
		return err
	}
	var req transport.UpdateBlogRequest
	if err := transport.Bind(c, &req); err != nil {
		l.Warn("update_blog_error", "status", 400, "error", err)
		return err
	}

	b, err := h.Svc.Update(ctx, actor, id, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.BlogResponse{Blog: b})
}

func (h *BlogsHTTP) Delete(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "blogId")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
