package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/blog_api/internal/models"
)

func bumpCounter(tx *gorm.DB, blogID uuid.UUID, column string, delta int) error {
	res := tx.Model(&models.Blog{}).
		Where("id = ?", blogID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func readCounter(tx *gorm.DB, blogID uuid.UUID, column string) (int, error) {
	var n int
	err := tx.Model(&models.Blog{}).Select(column).Where("id = ?", blogID).Scan(&n).Error
	return n, err
}

// LikeBlog returns the new like count.
func (r *GormRepo) LikeBlog(ctx context.Context, blogID, userID uuid.UUID) (int, error) {
	var count int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpCounter(tx, blogID, "likes_count", 1); err != nil {
			return err
		}
		if err := tx.Create(&models.Like{BlogID: blogID, UserID: userID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLiked
			}
			return err
		}
		var err error
		count, err = readCounter(tx, blogID, "likes_count")
		return err
	})
	if err != nil {
		return 0, mapErr(err)
	}
	return count, nil
}

func (r *GormRepo) UnlikeBlog(ctx context.Context, blogID, userID uuid.UUID) (int, error) {
	var count int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Blog{}).Where("id = ?", blogID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		res := tx.Where("blog_id = ? AND user_id = ?", blogID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotLiked
		}
		if err := bumpCounter(tx, blogID, "likes_count", -1); err != nil {
			return err
		}
		var err error
		count, err = readCounter(tx, blogID, "likes_count")
		return err
	})
	if err != nil {
		return 0, mapErr(err)
	}
	return count, nil
}

func (r *GormRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	return mapErr(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpCounter(tx, c.BlogID, "comments_count", 1); err != nil {
			return err
		}
		return tx.Create(c).Error
	}))
}

func (r *GormRepo) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// ListCommentsByBlog is newest first.
func (r *GormRepo) ListCommentsByBlog(ctx context.Context, blogID uuid.UUID) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := r.DB.WithContext(ctx).
		Where("blog_id = ?", blogID).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *GormRepo) DeleteComment(ctx context.Context, c *models.Comment) error {
	return mapErr(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", c.ID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return bumpCounter(tx, c.BlogID, "comments_count", -1)
	}))
}
