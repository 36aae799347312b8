package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_StatusAndCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   Kind
		status int
		code   string
	}{
		{KindAuthentication, http.StatusUnauthorized, "AuthenticationError"},
		{KindAuthorization, http.StatusForbidden, "AuthorizationError"},
		{KindValidation, http.StatusBadRequest, "ValidationError"},
		{KindNotFound, http.StatusNotFound, "NotFound"},
		{KindConflict, http.StatusConflict, "Conflict"},
		{KindStoreUnavailable, http.StatusInternalServerError, "ServerError"},
		{KindServer, http.StatusInternalServerError, "ServerError"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.kind.Status(), tt.kind)
		assert.Equal(t, tt.code, tt.kind.Code(), tt.kind)
	}
}

func TestError_IsMatchesKindAndReason(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("refresh: %w", Authentication("refresh_revoked", "Invalid refresh token", nil))

	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, &Error{Kind: KindAuthentication, Reason: "refresh_revoked"})
	assert.NotErrorIs(t, err, &Error{Kind: KindAuthentication, Reason: "refresh_expired"})
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestError_UnwrapAndKindOf(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := StoreUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
	assert.Equal(t, KindServer, KindOf(errors.New("boom")))
	assert.Contains(t, err.Error(), "connection refused")
}
