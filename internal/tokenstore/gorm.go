package tokenstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/blog_api/internal/models"
)

var (
	_ Store  = (*GormStore)(nil)
	_ Purger = (*GormStore)(nil)
)

// GormStore keeps records in the tokens table (postgres in production).
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

func (s *GormStore) Save(ctx context.Context, userID, token string, expiresAt time.Time) error {
	rec := models.Token{TokenHash: HashToken(token), UserID: userID, ExpiresAt: expiresAt.UTC()}
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return unavailable("save", err)
	}
	return nil
}

func (s *GormStore) FindByToken(ctx context.Context, token string) (*Record, error) {
	var t models.Token
	err := s.DB.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", HashToken(token), time.Now().UTC()).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find", err)
	}
	return &Record{TokenHash: t.TokenHash, UserID: t.UserID, ExpiresAt: t.ExpiresAt, CreatedAt: t.CreatedAt}, nil
}

func (s *GormStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res := s.DB.WithContext(ctx).Where("token_hash = ?", HashToken(token)).Delete(&models.Token{})
	if res.Error != nil {
		return false, unavailable("delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DeleteAllForUser(ctx context.Context, userID string) error {
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Token{}).Error; err != nil {
		return unavailable("delete all", err)
	}
	return nil
}

// Rotate relies on the row lock taken by DELETE: a concurrent rotation of
// the same token sees zero affected rows once the winner commits.
func (s *GormStore) Rotate(ctx context.Context, oldToken, userID, newToken string, expiresAt time.Time) (bool, error) {
	rotated := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token_hash = ? AND user_id = ?", HashToken(oldToken), userID).Delete(&models.Token{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		next := models.Token{TokenHash: HashToken(newToken), UserID: userID, ExpiresAt: expiresAt.UTC()}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		rotated = true
		return nil
	})
	if err != nil {
		return false, unavailable("rotate", err)
	}
	return rotated, nil
}

func (s *GormStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.Token{})
	if res.Error != nil {
		return 0, unavailable("purge", res.Error)
	}
	return res.RowsAffected, nil
}
