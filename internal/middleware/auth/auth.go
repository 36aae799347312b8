// Package auth holds the echo middleware that authenticates bearer access
// tokens and authorizes by role.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/tokens"
)

const (
	keyUserID = "user_id"
	keyRole   = "role"
)

const (
	MsgNoToken      = "Access denied, no token provided"
	MsgTokenExpired = "Access token expired, request a new one with refresh token"
	MsgTokenInvalid = "Access token invalid"
	MsgUserNotFound = "User not found"
	MsgForbidden    = "Access denied, insufficient permissions"
)

type ctxKey struct{}

type AccessVerifier interface {
	VerifyAccessToken(token string) (*tokens.Claims, error)
}

type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (models.Role, error)
}

func bearer(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func Authenticate(v AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("mw", "auth.authenticate")

			token := bearer(c)
			if token == "" {
				l.Warn("authenticate_failed", "status", 401, "reason", "no_token")
				return apperr.Authentication("no_token", MsgNoToken, nil)
			}

			claims, err := v.VerifyAccessToken(token)
			switch {
			case errors.Is(err, tokens.ErrTokenExpired):
				l.Warn("authenticate_failed", "status", 401, "reason", "access_expired")
				return apperr.Authentication("access_expired", MsgTokenExpired, err)
			case errors.Is(err, tokens.ErrTokenInvalid):
				l.Warn("authenticate_failed", "status", 401, "reason", "access_invalid")
				return apperr.Authentication("access_invalid", MsgTokenInvalid, err)
			case err != nil:
				l.Error("authenticate_failed", "status", 500, "error", err)
				return apperr.Server(err)
			}

			userID := claims.UserID()
			c.Set(keyUserID, userID)
			ctx = context.WithValue(ctx, ctxKey{}, userID)
			ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", userID))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// Authorize must run after Authenticate. It reads the role from the
// database on every request, so role changes apply immediately.
func Authorize(lookup RoleLookup, roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("mw", "auth.authorize")

			userID := UserID(c)
			if userID == "" {
				l.Warn("authorize_failed", "status", 401, "reason", "unauthenticated")
				return apperr.Authentication("no_token", MsgNoToken, nil)
			}

			role, err := lookup.RoleOf(ctx, userID)
			if errors.Is(err, repo.ErrNotFound) {
				l.Warn("authorize_failed", "status", 404, "reason", "user not found")
				return apperr.NotFound(MsgUserNotFound)
			}
			if err != nil {
				l.Error("authorize_failed", "status", 500, "error", err)
				return apperr.Server(err)
			}

			for _, r := range roles {
				if r == role {
					c.Set(keyRole, role)
					return next(c)
				}
			}
			l.Warn("authorize_failed", "status", 403, "reason", "role not permitted", "role", string(role))
			return apperr.Authorization("role_forbidden", MsgForbidden)
		}
	}
}

func UserID(c echo.Context) string {
	id, _ := c.Get(keyUserID).(string)
	return id
}

func Role(c echo.Context) models.Role {
	r, _ := c.Get(keyRole).(models.Role)
	return r
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
