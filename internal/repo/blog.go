package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/blog_api/internal/models"
)

type BlogFilter struct {
	AuthorID      *uuid.UUID
	PublishedOnly bool
}

func (f BlogFilter) apply(q *gorm.DB) *gorm.DB {
	if f.AuthorID != nil {
		q = q.Where("author_id = ?", *f.AuthorID)
	}
	if f.PublishedOnly {
		q = q.Where("status = ?", models.StatusPublished)
	}
	return q
}

func (r *GormRepo) CreateBlog(ctx context.Context, b *models.Blog) error {
	return mapErr(r.DB.WithContext(ctx).Create(b).Error)
}

func (r *GormRepo) GetBlogByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var b models.Blog
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (r *GormRepo) GetBlogBySlug(ctx context.Context, slug string) (*models.Blog, error) {
	var b models.Blog
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&b).Error; err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

// GetBlogsByIDs keeps the order of ids and skips the ones that are gone.
func (r *GormRepo) GetBlogsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Blog, error) {
	if len(ids) == 0 {
		return []models.Blog{}, nil
	}
	var found []models.Blog
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Blog, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	out := make([]models.Blog, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *GormRepo) ListBlogs(ctx context.Context, f BlogFilter, limit, offset int) (int64, []models.Blog, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	blogs := make([]models.Blog, 0, limit)
	if err := f.apply(r.DB.WithContext(ctx)).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&blogs).Error; err != nil {
		return 0, nil, err
	}
	return total, blogs, nil
}

// SearchBlogs is the database fallback used when no search index is
// configured: a case-insensitive substring match on title and content.
func (r *GormRepo) SearchBlogs(ctx context.Context, q string, f BlogFilter, limit, offset int) (int64, []models.Blog, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	where := "(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\')"

	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).
		Where(where, pattern, pattern).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	blogs := make([]models.Blog, 0, limit)
	if err := f.apply(r.DB.WithContext(ctx)).
		Where(where, pattern, pattern).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&blogs).Error; err != nil {
		return 0, nil, err
	}
	return total, blogs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *GormRepo) SaveBlog(ctx context.Context, b *models.Blog) error {
	return mapErr(r.DB.WithContext(ctx).Save(b).Error)
}

func (r *GormRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Blog{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
}

func (r *GormRepo) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	return mapErr(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Blog{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}
