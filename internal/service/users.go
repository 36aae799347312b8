package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/events"
	"github.com/Skotchmaster/blog_api/internal/hash"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/tokenstore"
)

type UserService struct {
	Repo   *repo.GormRepo
	Store  tokenstore.Store
	Index  Indexer
	Events Publisher
}

type UpdateUserInput struct {
	Username  *string
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "User not found")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) (int64, []models.User, error) {
	total, users, err := s.Repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return 0, nil, apperr.Server(err)
	}
	return total, users, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.update", "user_id", id.String())

	current, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, dbErr(err, "User not found")
	}

	fields := map[string]string{}
	if in.Username != nil && *in.Username != current.Username {
		taken, err := s.Repo.UsernameExists(ctx, *in.Username)
		if err != nil {
			return nil, apperr.Server(err)
		}
		if taken {
			fields["username"] = "Username already in use"
		}
	}
	if in.Email != nil && !strings.EqualFold(strings.TrimSpace(*in.Email), current.Email) {
		taken, err := s.Repo.EmailExists(ctx, *in.Email)
		if err != nil {
			return nil, apperr.Server(err)
		}
		if taken {
			fields["email"] = "Email already in use"
		}
	}
	if len(fields) > 0 {
		l.Warn("update_user_failed", "status", 400, "reason", "duplicate fields")
		return nil, apperr.Validation("Validation failed", fields)
	}

	upd := repo.UserUpdate{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if in.Password != nil {
		pw, err := hash.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Validation("Invalid password", map[string]string{"password": err.Error()})
		}
		upd.PasswordHash = &pw
	}

	u, err := s.Repo.UpdateUser(ctx, id, upd)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, apperr.Validation("Username or email already in use", nil)
	}
	if err != nil {
		l.Error("update_user_failed", "status", 500, "error", err)
		return nil, dbErr(err, "User not found")
	}
	l.Info("user_updated")
	return u, nil
}

// Delete removes the user and everything they own and revokes every
// session they hold.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "users.delete", "user_id", id.String())

	if _, err := s.Repo.GetUserByID(ctx, id); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			l.Error("delete_user_failed", "status", 500, "error", err)
		}
		return dbErr(err, "User not found")
	}

	// sessions go first: if the store is down the user survives and can retry
	_, err := storeCall(ctx, 0, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Store.DeleteAllForUser(ctx, id.String())
	})
	if err != nil {
		l.Error("delete_user_failed", "status", 500, "reason", "revoke sessions", "error", err)
		return storeErr(err)
	}

	blogIDs, err := s.Repo.DeleteUser(ctx, id)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			l.Error("delete_user_failed", "status", 500, "error", err)
		}
		return dbErr(err, "User not found")
	}

	if s.Index != nil {
		for _, bid := range blogIDs {
			if err := s.Index.DeleteBlog(ctx, bid.String()); err != nil {
				l.Warn("search_delete_failed", "blog_id", bid.String(), "error", err)
			}
		}
	}

	publish(ctx, s.Events, events.TopicUsers, id.String(), "user_deleted", map[string]any{
		"userId": id.String(), "blogsDeleted": len(blogIDs),
	})
	l.Info("user_deleted", "blogs_deleted", len(blogIDs))
	return nil
}
