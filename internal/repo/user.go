package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/blog_api/internal/hash"
	"github.com/Skotchmaster/blog_api/internal/models"
)

type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return mapErr(r.DB.WithContext(ctx).Create(u).Error)
}

func (r *GormRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *GormRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *GormRepo) exists(ctx context.Context, where string, arg any) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where(where, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// VerifyCredentials returns ErrInvalidCredentials for an unknown email and
// for a wrong password alike.
func (r *GormRepo) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// RoleOf reads the current role; a malformed id is reported as not found.
func (r *GormRepo) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", ErrNotFound
	}
	var user models.User
	if err := r.DB.WithContext(ctx).Select("role").Where("id = ?", id).First(&user).Error; err != nil {
		return "", mapErr(err)
	}
	return user.Role, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, limit, offset int) (int64, []models.User, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	users := make([]models.User, 0, limit)
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

func (r *GormRepo) UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (*models.User, error) {
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}

	if err := r.DB.WithContext(ctx).Save(user).Error; err != nil {
		return nil, mapErr(err)
	}
	return user, nil
}

// DeleteUser removes the user with their blogs, comments and likes, and
// fixes the counters of other authors' blogs. It returns the ids of the
// deleted blogs.
func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var blogIDs []uuid.UUID
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&models.Blog{}).Where("author_id = ?", id).Pluck("id", &blogIDs).Error; err != nil {
			return err
		}

		if err := tx.Exec(
			"UPDATE blogs SET likes_count = likes_count - 1 WHERE id IN (SELECT blog_id FROM likes WHERE user_id = ?)", id,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			`UPDATE blogs SET comments_count = comments_count -
			   (SELECT COUNT(*) FROM comments c WHERE c.blog_id = blogs.id AND c.user_id = ?)
			 WHERE id IN (SELECT blog_id FROM comments WHERE user_id = ?)`, id, id,
		).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if len(blogIDs) > 0 {
			if err := tx.Where("blog_id IN ?", blogIDs).Delete(&models.Like{}).Error; err != nil {
				return err
			}
			if err := tx.Where("blog_id IN ?", blogIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", blogIDs).Delete(&models.Blog{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return blogIDs, nil
}
