package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/middleware/auth"
	"github.com/Skotchmaster/blog_api/internal/service"
	"github.com/Skotchmaster/blog_api/internal/util"
)

const refreshCookie = "refreshToken"

type Paging struct {
	DefaultLimit  int
	DefaultOffset int
}

func (p Paging) from(c echo.Context) (limit, offset int) {
	return util.LimitOffset(c.QueryParam("limit"), c.QueryParam("offset"), p.DefaultLimit, p.DefaultOffset)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid "+name, map[string]string{name: "must be a valid id"})
	}
	return id, nil
}

// currentUser is only called behind Authenticate.
func currentUser(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserID(c))
	if err != nil {
		return uuid.Nil, apperr.Authentication("access_invalid", auth.MsgTokenInvalid, err)
	}
	return id, nil
}

func viewer(c echo.Context) (service.Viewer, error) {
	id, err := currentUser(c)
	if err != nil {
		return service.Viewer{}, err
	}
	return service.Viewer{UserID: id, Role: auth.Role(c)}, nil
}

func newCookie(value string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func clearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
