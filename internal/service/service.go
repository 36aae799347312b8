// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/blog_api/internal/apperr"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/search"
	"github.com/Skotchmaster/blog_api/internal/tokenstore"
)

const defaultStoreTimeout = 3 * time.Second

type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, data map[string]any) error
}

// Indexer is the blog search index. A nil Indexer means search falls back
// to the database.
type Indexer interface {
	IndexBlog(ctx context.Context, b *models.Blog) error
	DeleteBlog(ctx context.Context, id string) error
	SearchBlogs(ctx context.Context, q string, publishedOnly bool, limit, offset int) (search.Results, error)
}

// publish is best-effort: a broker outage never fails the request.
func publish(ctx context.Context, p Publisher, topic, key, eventType string, data map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, topic, key, eventType, data); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", eventType, "error", err)
	}
}

// storeCall detaches fn from client cancellation so a half-applied write is
// never abandoned, and bounds it with timeout.
func storeCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return fn(ctx)
}

func storeErr(err error) error {
	if errors.Is(err, tokenstore.ErrUnavailable) {
		return apperr.StoreUnavailable(err)
	}
	return apperr.Server(err)
}

// dbErr maps repository errors that have no domain meaning at the call site.
func dbErr(err error, notFound string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return apperr.NotFound(notFound)
	default:
		return apperr.Server(err)
	}
}
