package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/middleware/security"
	"github.com/Skotchmaster/blog_api/internal/transport"
)

const msgServerError = "Internal server error"

// ErrorHandler renders every error as {code, message, errors?}. Details of
// 5xx errors are logged and never sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := render(err)

	if status >= 500 {
		l := logging.FromContext(c.Request().Context())
		attrs := []any{"status", status, "error", err}
		if ae, ok := apperr.As(err); ok {
			attrs = append(attrs, "kind", string(ae.Kind), "reason", ae.Reason)
		}
		l.Error("request_failed", attrs...)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", err)
	}
}

func render(err error) (int, transport.ErrorResponse) {
	if ae, ok := apperr.As(err); ok {
		status := ae.Kind.Status()
		msg := ae.Message
		if status >= 500 {
			msg = msgServerError
		}
		return status, transport.ErrorResponse{Code: ae.Kind.Code(), Message: msg, Errors: ae.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, transport.ErrorResponse{Code: codeFor(he.Code), Message: messageOf(he)}
	}

	return http.StatusInternalServerError, transport.ErrorResponse{Code: string(apperr.KindServer), Message: msgServerError}
}

func codeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return string(apperr.KindAuthentication)
	case http.StatusForbidden:
		return string(apperr.KindAuthorization)
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusConflict:
		return string(apperr.KindConflict)
	case http.StatusTooManyRequests:
		return security.CodeTooManyRequests
	}
	if status >= 500 {
		return string(apperr.KindServer)
	}
	return string(apperr.KindValidation)
}

func messageOf(he *echo.HTTPError) string {
	if he.Code >= 500 {
		return msgServerError
	}
	switch he.Code {
	case http.StatusRequestEntityTooLarge:
		return "Request body too large"
	case http.StatusNotFound:
		return "Route not found"
	}
	if s, ok := he.Message.(string); ok {
		return s
	}
	return fmt.Sprint(he.Message)
}
