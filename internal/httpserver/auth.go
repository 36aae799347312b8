package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/service"
	"github.com/Skotchmaster/blog_api/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
	// SecureCookies marks the refresh cookie Secure; off for plain-http dev.
	SecureCookies bool
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := transport.Bind(c, &req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		return err
	}

	c.SetCookie(newCookie(res.RefreshToken, res.RefreshExpiresAt, h.SecureCookies))
	return c.JSON(http.StatusCreated, transport.AuthResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := transport.Bind(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(newCookie(res.RefreshToken, res.RefreshExpiresAt, h.SecureCookies))
	return c.JSON(http.StatusOK, transport.AuthResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// refreshToken prefers the body and falls back to the cookie.
func refreshToken(c echo.Context) (string, error) {
	var req transport.RefreshRequest
	if err := transport.Bind(c, &req); err != nil {
		return "", err
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	if ck, err := c.Cookie(refreshCookie); err == nil {
		return ck.Value, nil
	}
	return "", nil
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	token, err := refreshToken(c)
	if err != nil {
		return err
	}

	pair, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		return err
	}

	c.SetCookie(newCookie(pair.RefreshToken, pair.RefreshExpiresAt, h.SecureCookies))
	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Logout(ctx, token); err != nil {
		return err
	}

	c.SetCookie(clearCookie(h.SecureCookies))
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) LogoutAll(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.Svc.LogoutAll(c.Request().Context(), id.String()); err != nil {
		return err
	}

	c.SetCookie(clearCookie(h.SecureCookies))
	return c.NoContent(http.StatusNoContent)
}
