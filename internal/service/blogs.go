package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/events"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/util"
)

type BlogService struct {
	Repo   *repo.GormRepo
	Index  Indexer
	Events Publisher
}

type CreateBlogInput struct {
	Title   string
	Content string
	Status  string
	Banner  models.Banner
}

type UpdateBlogInput struct {
	Title   *string
	Content *string
	Status  *string
	Banner  *models.Banner
}

type BlogPage struct {
	Limit  int
	Offset int
	Total  int64
	Blogs  []models.Blog
}

// Viewer is who is reading: non-admins only see published blogs.
type Viewer struct {
	UserID uuid.UUID
	Role   models.Role
}

func (v Viewer) publishedOnly() bool { return v.Role != models.RoleAdmin }

func (s *BlogService) Create(ctx context.Context, authorID uuid.UUID, in CreateBlogInput) (*models.Blog, error) {
	l := logging.FromContext(ctx).With("svc", "blogs.create", "user_id", authorID.String())

	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	b := &models.Blog{
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Banner:   in.Banner,
		AuthorID: authorID,
		Status:   status,
	}
	if status == models.StatusPublished {
		now := time.Now().UTC()
		b.PublishedAt = &now
	}

	// slugs carry a random suffix; retry on the rare collision
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		b.Slug = util.Slugify(b.Title)
		if err = s.Repo.CreateBlog(ctx, b); !errors.Is(err, repo.ErrDuplicate) {
			break
		}
		b.ID = uuid.Nil
	}
	if err != nil {
		l.Error("create_blog_failed", "status", 500, "error", err)
		return nil, apperr.Server(err)
	}

	s.index(ctx, b)
	publish(ctx, s.Events, events.TopicBlogs, b.ID.String(), "blog_created", map[string]any{
		"blogId": b.ID.String(), "slug": b.Slug, "authorId": authorID.String(), "status": b.Status,
	})
	l.Info("blog_created", "blog_id", b.ID.String(), "slug", b.Slug)
	return b, nil
}

func (s *BlogService) GetBySlug(ctx context.Context, v Viewer, slug string) (*models.Blog, error) {
	b, err := s.Repo.GetBlogBySlug(ctx, slug)
	if err != nil {
		return nil, dbErr(err, "Blog not found")
	}
	if v.publishedOnly() && b.Status != models.StatusPublished {
		return nil, apperr.NotFound("Blog not found")
	}

	if err := s.Repo.IncrementViews(ctx, b.ID); err != nil {
		logging.FromContext(ctx).Warn("increment_views_failed", "blog_id", b.ID.String(), "error", err)
	} else {
		b.ViewsCount++
	}
	return b, nil
}

func (s *BlogService) List(ctx context.Context, v Viewer, limit, offset int) (*BlogPage, error) {
	return s.list(ctx, repo.BlogFilter{PublishedOnly: v.publishedOnly()}, limit, offset)
}

func (s *BlogService) ListByAuthor(ctx context.Context, v Viewer, authorID uuid.UUID, limit, offset int) (*BlogPage, error) {
	return s.list(ctx, repo.BlogFilter{AuthorID: &authorID, PublishedOnly: v.publishedOnly()}, limit, offset)
}

func (s *BlogService) list(ctx context.Context, f repo.BlogFilter, limit, offset int) (*BlogPage, error) {
	total, blogs, err := s.Repo.ListBlogs(ctx, f, limit, offset)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return &BlogPage{Limit: limit, Offset: offset, Total: total, Blogs: blogs}, nil
}

// Search asks the index first and falls back to the database when there is
// no index or it fails.
func (s *BlogService) Search(ctx context.Context, v Viewer, q string, limit, offset int) (*BlogPage, error) {
	l := logging.FromContext(ctx).With("svc", "blogs.search")

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.Validation("Search query is required", map[string]string{"q": "Search query is required"})
	}

	if s.Index != nil {
		res, err := s.Index.SearchBlogs(ctx, q, v.publishedOnly(), limit, offset)
		if err == nil {
			ids := make([]uuid.UUID, 0, len(res.IDs))
			for _, raw := range res.IDs {
				if id, err := uuid.Parse(raw); err == nil {
					ids = append(ids, id)
				}
			}
			blogs, err := s.Repo.GetBlogsByIDs(ctx, ids)
			if err != nil {
				return nil, apperr.Server(err)
			}
			return &BlogPage{Limit: limit, Offset: offset, Total: res.Total, Blogs: blogs}, nil
		}
		l.Warn("search_index_failed", "error", err)
	}

	total, blogs, err := s.Repo.SearchBlogs(ctx, q, repo.BlogFilter{PublishedOnly: v.publishedOnly()}, limit, offset)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return &BlogPage{Limit: limit, Offset: offset, Total: total, Blogs: blogs}, nil
}

// ownBlog loads a blog that actorID wrote.
func (s *BlogService) ownBlog(ctx context.Context, actorID, blogID uuid.UUID) (*models.Blog, error) {
	b, err := s.Repo.GetBlogByID(ctx, blogID)
	if err != nil {
		return nil, dbErr(err, "Blog not found")
	}
	if b.AuthorID != actorID {
		return nil, apperr.Authorization("not_author", "Access denied, insufficient permissions")
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, actorID, blogID uuid.UUID, in UpdateBlogInput) (*models.Blog, error) {
	l := logging.FromContext(ctx).With("svc", "blogs.update", "user_id", actorID.String(), "blog_id", blogID.String())

	b, err := s.ownBlog(ctx, actorID, blogID)
	if err != nil {
		l.Warn("update_blog_failed", "status", apperr.KindOf(err).Status(), "reason", err.Error())
		return nil, err
	}

	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		b.Content = strings.TrimSpace(*in.Content)
	}
	if in.Banner != nil {
		b.Banner = *in.Banner
	}
	if in.Status != nil {
		b.Status = *in.Status
		if b.Status == models.StatusPublished && b.PublishedAt == nil {
			now := time.Now().UTC()
			b.PublishedAt = &now
		}
	}

	if err := s.Repo.SaveBlog(ctx, b); err != nil {
		l.Error("update_blog_failed", "status", 500, "error", err)
		return nil, apperr.Server(err)
	}

	s.index(ctx, b)
	publish(ctx, s.Events, events.TopicBlogs, b.ID.String(), "blog_updated", map[string]any{
		"blogId": b.ID.String(), "status": b.Status,
	})
	l.Info("blog_updated")
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, actorID, blogID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "blogs.delete", "user_id", actorID.String(), "blog_id", blogID.String())

	if _, err := s.ownBlog(ctx, actorID, blogID); err != nil {
		l.Warn("delete_blog_failed", "status", apperr.KindOf(err).Status(), "reason", err.Error())
		return err
	}
	if err := s.Repo.DeleteBlog(ctx, blogID); err != nil {
		return dbErr(err, "Blog not found")
	}

	if s.Index != nil {
		if err := s.Index.DeleteBlog(ctx, blogID.String()); err != nil {
			l.Warn("search_delete_failed", "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicBlogs, blogID.String(), "blog_deleted", map[string]any{"blogId": blogID.String()})
	l.Info("blog_deleted")
	return nil
}

func (s *BlogService) index(ctx context.Context, b *models.Blog) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexBlog(ctx, b); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "blog_id", b.ID.String(), "error", err)
	}
}
