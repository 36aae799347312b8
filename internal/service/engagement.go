package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/events"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
)

// visibleBlog hides drafts from everyone but admins.
func visibleBlog(ctx context.Context, r *repo.GormRepo, v Viewer, blogID uuid.UUID) (*models.Blog, error) {
	b, err := r.GetBlogByID(ctx, blogID)
	if err != nil {
		return nil, dbErr(err, "Blog not found")
	}
	if v.publishedOnly() && b.Status != models.StatusPublished {
		return nil, apperr.NotFound("Blog not found")
	}
	return b, nil
}

type LikeService struct {
	Repo   *repo.GormRepo
	Events Publisher
}

// Like returns the blog's like count after the change.
func (s *LikeService) Like(ctx context.Context, v Viewer, blogID uuid.UUID) (int, error) {
	userID := v.UserID
	l := logging.FromContext(ctx).With("svc", "likes.like", "user_id", userID.String(), "blog_id", blogID.String())

	if _, err := visibleBlog(ctx, s.Repo, v, blogID); err != nil {
		return 0, err
	}
	n, err := s.Repo.LikeBlog(ctx, blogID, userID)
	switch {
	case errors.Is(err, repo.ErrAlreadyLiked):
		l.Warn("like_failed", "status", 400, "reason", "already liked")
		return 0, apperr.Validation("You already liked this blog", nil)
	case err != nil:
		return 0, dbErr(err, "Blog not found")
	}

	publish(ctx, s.Events, events.TopicBlogs, blogID.String(), "blog_liked", map[string]any{
		"blogId": blogID.String(), "userId": userID.String(),
	})
	return n, nil
}

func (s *LikeService) Unlike(ctx context.Context, v Viewer, blogID uuid.UUID) (int, error) {
	userID := v.UserID
	l := logging.FromContext(ctx).With("svc", "likes.unlike", "user_id", userID.String(), "blog_id", blogID.String())

	if _, err := visibleBlog(ctx, s.Repo, v, blogID); err != nil {
		return 0, err
	}
	n, err := s.Repo.UnlikeBlog(ctx, blogID, userID)
	switch {
	case errors.Is(err, repo.ErrNotLiked):
		l.Warn("unlike_failed", "status", 400, "reason", "like not found")
		return 0, apperr.Validation("Like not found", nil)
	case err != nil:
		return 0, dbErr(err, "Blog not found")
	}

	publish(ctx, s.Events, events.TopicBlogs, blogID.String(), "blog_unliked", map[string]any{
		"blogId": blogID.String(), "userId": userID.String(),
	})
	return n, nil
}

type CommentService struct {
	Repo   *repo.GormRepo
	Events Publisher
}

func (s *CommentService) Create(ctx context.Context, v Viewer, blogID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Content is required", map[string]string{"content": "Content is required"})
	}
	if _, err := visibleBlog(ctx, s.Repo, v, blogID); err != nil {
		return nil, err
	}

	userID := v.UserID
	c := &models.Comment{BlogID: blogID, UserID: userID, Content: content}
	if err := s.Repo.CreateComment(ctx, c); err != nil {
		return nil, dbErr(err, "Blog not found")
	}

	publish(ctx, s.Events, events.TopicComments, blogID.String(), "comment_created", map[string]any{
		"commentId": c.ID.String(), "blogId": blogID.String(), "userId": userID.String(),
	})
	return c, nil
}

func (s *CommentService) ListByBlog(ctx context.Context, v Viewer, blogID uuid.UUID) ([]models.Comment, error) {
	if _, err := visibleBlog(ctx, s.Repo, v, blogID); err != nil {
		return nil, err
	}
	comments, err := s.Repo.ListCommentsByBlog(ctx, blogID)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return comments, nil
}

// Delete is allowed to the comment's author and to admins.
func (s *CommentService) Delete(ctx context.Context, v Viewer, commentID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "comments.delete", "user_id", v.UserID.String(), "comment_id", commentID.String())

	c, err := s.Repo.GetComment(ctx, commentID)
	if err != nil {
		return dbErr(err, "Comment not found")
	}
	if c.UserID != v.UserID && v.Role != models.RoleAdmin {
		l.Warn("delete_comment_failed", "status", 403, "reason", "not owner")
		return apperr.Authorization("not_owner", "Access denied, insufficient permissions")
	}

	if err := s.Repo.DeleteComment(ctx, c); err != nil {
		return dbErr(err, "Comment not found")
	}
	publish(ctx, s.Events, events.TopicComments, c.BlogID.String(), "comment_deleted", map[string]any{
		"commentId": c.ID.String(), "blogId": c.BlogID.String(),
	})
	l.Info("comment_deleted")
	return nil
}
