package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/events"
	"github.com/Skotchmaster/blog_api/internal/hash"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/tokens"
	"github.com/Skotchmaster/blog_api/internal/tokenstore"
	"github.com/Skotchmaster/blog_api/internal/util"
)

// Rejection reasons are logged, never shown. Every refresh rejection
// reaches the client as msgInvalidRefresh.
const (
	ReasonRefreshExpired  = "refresh_expired"
	ReasonRefreshInvalid  = "refresh_invalid"
	ReasonRefreshRevoked  = "refresh_revoked"
	ReasonRefreshOwner    = "refresh_owner_mismatch"
	ReasonRefreshRotated  = "refresh_rotated"
	ReasonBadCredentials  = "invalid_credentials"
	ReasonAdminNotAllowed = "admin_not_whitelisted"

	msgInvalidRefresh = "Invalid refresh token"
)

type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
}

type AuthService struct {
	Users  UserStore
	Codec  *tokens.Codec
	Store  tokenstore.Store
	Events Publisher
	// IsAdminEmail gates registration with the admin role.
	IsAdminEmail func(email string) bool
	StoreTimeout time.Duration
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type AuthResult struct {
	User *models.User
	TokenPair
}

type RegisterInput struct {
	Email    string
	Password string
	Role     models.Role
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and password are required", nil)
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role == models.RoleAdmin && (s.IsAdminEmail == nil || !s.IsAdminEmail(email)) {
		l.Warn("register_failed", "status", 403, "reason", ReasonAdminNotAllowed)
		return nil, apperr.Authorization(ReasonAdminNotAllowed, "You cannot register as an admin")
	}

	taken, err := s.Users.EmailExists(ctx, email)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "email lookup", "error", err)
		return nil, apperr.Server(err)
	}
	if taken {
		l.Warn("register_failed", "status", 400, "reason", "email already in use")
		return nil, apperr.Validation("Email already in use", map[string]string{"email": "Email already in use"})
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, apperr.Server(err)
	}

	username, err := s.freeUsername(ctx)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "username generation", "error", err)
		return nil, apperr.Server(err)
	}

	user := &models.User{Username: username, Email: email, PasswordHash: pwHash, Role: role}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Validation("Email already in use", map[string]string{"email": "Email already in use"})
		}
		l.Error("register_failed", "status", 500, "reason", "create user", "error", err)
		return nil, apperr.Server(err)
	}

	pair, err := s.startSession(ctx, user.ID.String())
	if err != nil {
		l.Error("register_failed", "status", apperr.KindOf(err).Status(), "reason", "session", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID.String(), "user_registered", map[string]any{
		"userId": user.ID.String(), "email": user.Email, "role": string(user.Role),
	})
	l.Info("user_registered", "user_id", user.ID.String(), "role", string(user.Role))
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

func (s *AuthService) freeUsername(ctx context.Context) (string, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		name := util.GenUsername()
		taken, err := s.Users.UsernameExists(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return "", errors.New("no free username after retries")
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Users.VerifyCredentials(ctx, email, password)
	if errors.Is(err, repo.ErrInvalidCredentials) {
		l.Warn("login_failed", "status", 401, "reason", ReasonBadCredentials)
		return nil, apperr.Authentication(ReasonBadCredentials, "Invalid email or password", nil)
	}
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "credential lookup", "error", err)
		return nil, apperr.Server(err)
	}

	pair, err := s.startSession(ctx, user.ID.String())
	if err != nil {
		l.Error("login_failed", "status", apperr.KindOf(err).Status(), "reason", "session", "error", err)
		return nil, err
	}

	l.Info("login_succeeded", "user_id", user.ID.String())
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

// startSession issues a pair and persists its refresh token.
func (s *AuthService) startSession(ctx context.Context, userID string) (*TokenPair, error) {
	pair, err := s.issuePair(userID)
	if err != nil {
		return nil, err
	}
	_, err = storeCall(ctx, s.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Store.Save(ctx, userID, pair.RefreshToken, pair.RefreshExpiresAt)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return pair, nil
}

func (s *AuthService) issuePair(userID string) (*TokenPair, error) {
	access, accessExp, err := s.Codec.IssueAccessToken(userID)
	if err != nil {
		return nil, apperr.Server(err)
	}
	refresh, refreshExp, err := s.Codec.IssueRefreshToken(userID)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// token stops being honorable; of concurrent refreshes with the same token
// exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	reject := func(reason string, err error) (*TokenPair, error) {
		l.Warn("refresh_failed", "status", 401, "reason", reason)
		return nil, apperr.Authentication(reason, msgInvalidRefresh, err)
	}

	if refreshToken == "" {
		return reject(ReasonRefreshInvalid, nil)
	}

	claims, err := s.Codec.VerifyRefreshToken(refreshToken)
	switch {
	case errors.Is(err, tokens.ErrTokenExpired):
		return reject(ReasonRefreshExpired, err)
	case err != nil:
		return reject(ReasonRefreshInvalid, err)
	}

	rec, err := storeCall(ctx, s.StoreTimeout, func(ctx context.Context) (*tokenstore.Record, error) {
		return s.Store.FindByToken(ctx, refreshToken)
	})
	if errors.Is(err, tokenstore.ErrNotFound) {
		return reject(ReasonRefreshRevoked, nil)
	}
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "store lookup", "error", err)
		return nil, storeErr(err)
	}
	if rec.UserID != claims.UserID() {
		return reject(ReasonRefreshOwner, nil)
	}

	pair, err := s.issuePair(claims.UserID())
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "issue", "error", err)
		return nil, err
	}

	rotated, err := storeCall(ctx, s.StoreTimeout, func(ctx context.Context) (bool, error) {
		return s.Store.Rotate(ctx, refreshToken, claims.UserID(), pair.RefreshToken, pair.RefreshExpiresAt)
	})
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "store rotate", "error", err)
		return nil, storeErr(err)
	}
	if !rotated {
		return reject(ReasonRefreshRotated, nil)
	}

	l.Info("refresh_succeeded", "user_id", claims.UserID())
	return pair, nil
}

// Logout revokes one refresh token. Unknown and empty tokens are no-ops.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	removed, err := storeCall(ctx, s.StoreTimeout, func(ctx context.Context) (bool, error) {
		return s.Store.DeleteByToken(ctx, refreshToken)
	})
	if err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return storeErr(err)
	}
	l.Info("logout", "revoked", removed)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout_all")

	_, err := storeCall(ctx, s.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Store.DeleteAllForUser(ctx, userID)
	})
	if err != nil {
		l.Error("logout_all_failed", "status", 500, "error", err)
		return storeErr(err)
	}
	l.Info("logout_all", "user_id", userID)
	return nil
}
