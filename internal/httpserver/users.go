package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/service"
	"github.com/Skotchmaster/blog_api/internal/transport"
)

type UsersHTTP struct {
	Svc *service.UserService
	Paging
	SecureCookies bool
}

func (h *UsersHTTP) Current(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	u, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.UserResponse{User: u})
}

func (h *UsersHTTP) UpdateCurrent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update_current")

	id, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.UpdateUserRequest
	if err := transport.Bind(c, &req); err != nil {
		l.Warn("update_user_error", "status", 400, "error", err)
		return err
	}

	u, err := h.Svc.Update(ctx, id, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.UserResponse{User: u})
}

func (h *UsersHTTP) DeleteCurrent(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	c.SetCookie(clearCookie(h.SecureCookies))
	return c.NoContent(http.StatusNoContent)
}

func (h *UsersHTTP) List(c echo.Context) error {
	limit, offset := h.from(c)
	total, users, err := h.Svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(http.StatusOK, transport.UsersPage{Limit: limit, Offset: offset, Total: total, Users: users})
}

func (h *UsersHTTP) Get(c echo.Context) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	u, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.UserResponse{User: u})
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
