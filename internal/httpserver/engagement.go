package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/service"
	"github.com/Skotchmaster/blog_api/internal/transport"
)

type LikesHTTP struct {
	Svc *service.LikeService
}

func (h *LikesHTTP) Like(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	blog, err := uuidParam(c, "blogId")
	if err != nil {
		return err
	}
	n, err := h.Svc.Like(c.Request().Context(), v, blog)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.LikeResponse{LikesCount: n})
}

func (h *LikesHTTP) Unlike(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	blog, err := uuidParam(c, "blogId")
	if err != nil {
		return err
	}
	if _, err := h.Svc.Unlike(c.Request().Context(), v, blog); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type CommentsHTTP struct {
	Svc *service.CommentService
}

func (h *CommentsHTTP) Create(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	blog, err := uuidParam(c, "blogId")
	if err != nil {
		return err
	}
	var req transport.CommentRequest
	if err := transport.Bind(c, &req); err != nil {
		return err
	}
	cm, err := h.Svc.Create(c.Request().Context(), v, blog, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.CommentResponse{Comment: cm})
}

func (h *CommentsHTTP) ListByBlog(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	blog, err := uuidParam(c, "blogId")
	if err != nil {
		return err
	}
	comments, err := h.Svc.ListByBlog(c.Request().Context(), v, blog)
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return c.JSON(http.StatusOK, transport.CommentsResponse{Comments: comments})
}

func (h *CommentsHTTP) Delete(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "commentId")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), v, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
