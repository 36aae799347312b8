package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/tokens"
)

type fakeClock struct{ now time.Time }

func newCodec(t *testing.T, clock *fakeClock) *tokens.Codec {
	t.Helper()
	c, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, tokens.WithClock(func() time.Time { return clock.now }))
	require.NoError(t, err)
	return c
}

func newCtx(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func assertAppErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok, "want *apperr.Error, got %v", err)
	assert.Equal(t, kind, e.Kind)
	assert.Equal(t, msg, e.Message)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	codec := newCodec(t, clock)
	valid, _, err := codec.IssueAccessToken("user-1")
	require.NoError(t, err)
	refresh, _, err := codec.IssueRefreshToken("user-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{name: "no header", header: "", msg: MsgNoToken},
		{name: "wrong scheme", header: "Basic abc", msg: MsgNoToken},
		{name: "empty bearer", header: "Bearer ", msg: MsgNoToken},
		{name: "garbage", header: "Bearer not.a.jwt", msg: MsgTokenInvalid},
		{name: "refresh token", header: "Bearer " + refresh, msg: MsgTokenInvalid},
	}
	for _, tt := range tests {
		c, _ := newCtx(tt.header)
		err := Authenticate(codec)(okHandler)(c)
		assertAppErr(t, err, apperr.KindAuthentication, tt.msg)
		assert.Equal(t, 401, apperr.KindOf(err).Status(), tt.name)
	}

	c, rec := newCtx("bearer " + valid)
	var seenCtxID string
	err = Authenticate(codec)(func(c echo.Context) error {
		seenCtxID, _ = UserIDFromContext(c.Request().Context())
		return okHandler(c)
	})(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", UserID(c))
	assert.Equal(t, "user-1", seenCtxID)
}

func TestAuthenticate_Expired(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	codec := newCodec(t, clock)
	tok, _, err := codec.IssueAccessToken("user-1")
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	c, _ := newCtx("Bearer " + tok)
	err = Authenticate(codec)(okHandler)(c)
	assertAppErr(t, err, apperr.KindAuthentication, MsgTokenExpired)
}

type brokenVerifier struct{}

func (brokenVerifier) VerifyAccessToken(string) (*tokens.Claims, error) {
	return nil, errors.New("keystore offline")
}

func TestAuthenticate_UnexpectedError(t *testing.T) {
	t.Parallel()

	c, _ := newCtx("Bearer x")
	err := Authenticate(brokenVerifier{})(okHandler)(c)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
}

type fakeRoles map[string]models.Role

func (f fakeRoles) RoleOf(_ context.Context, id string) (models.Role, error) {
	if id == "broken" {
		return "", errors.New("db down")
	}
	r, ok := f[id]
	if !ok {
		return "", repo.ErrNotFound
	}
	return r, nil
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	roles := fakeRoles{"admin-1": models.RoleAdmin, "user-1": models.RoleUser}
	adminOnly := Authorize(roles, models.RoleAdmin)
	anyone := Authorize(roles, models.RoleAdmin, models.RoleUser)

	run := func(mw echo.MiddlewareFunc, userID string) (echo.Context, error) {
		c, _ := newCtx("")
		if userID != "" {
			c.Set(keyUserID, userID)
		}
		return c, mw(okHandler)(c)
	}

	c, err := run(adminOnly, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, Role(c))

	_, err = run(anyone, "user-1")
	require.NoError(t, err)

	_, err = run(adminOnly, "user-1")
	assertAppErr(t, err, apperr.KindAuthorization, MsgForbidden)
	assert.Equal(t, 403, apperr.KindOf(err).Status())

	_, err = run(anyone, "ghost")
	assertAppErr(t, err, apperr.KindNotFound, MsgUserNotFound)

	_, err = run(anyone, "broken")
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))

	_, err = run(anyone, "")
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}
