// Package search indexes published blogs in Elasticsearch and queries them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/blog_api/internal/models"
)

var ErrSearch = errors.New("search: elasticsearch request failed")

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
	// Transport is for tests.
	Transport http.RoundTripper
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	AuthorID    string     `json:"authorId"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

type Results struct {
	Total int64
	IDs   []string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("search: ES_URL is empty")
	}
	if cfg.Index == "" {
		cfg.Index = "blogs"
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("search: new client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: info: %v", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: info: %s", ErrSearch, res.Status())
	}

	return &Client{es: es, index: cfg.Index}, nil
}

func DocumentFrom(b *models.Blog) Document {
	return Document{
		ID:          b.ID.String(),
		Title:       b.Title,
		Slug:        b.Slug,
		Content:     b.Content,
		AuthorID:    b.AuthorID.String(),
		Status:      b.Status,
		PublishedAt: b.PublishedAt,
	}
}

func (c *Client) IndexBlog(ctx context.Context, b *models.Blog) error {
	body, err := json.Marshal(DocumentFrom(b))
	if err != nil {
		return fmt.Errorf("search: marshal: %w", err)
	}
	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(b.ID.String()),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: index: %v", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index: %s", ErrSearch, res.Status())
	}
	return nil
}

// DeleteBlog treats a missing document as deleted.
func (c *Client) DeleteBlog(ctx context.Context, id string) error {
	res, err := c.es.Delete(c.index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: delete: %v", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete: %s", ErrSearch, res.Status())
	}
	return nil
}

func (c *Client) SearchBlogs(ctx context.Context, q string, publishedOnly bool, limit, offset int) (Results, error) {
	query := map[string]any{
		"multi_match": map[string]any{
			"query":  q,
			"fields": []string{"title^2", "content"},
		},
	}
	if publishedOnly {
		query = map[string]any{
			"bool": map[string]any{
				"must":   query,
				"filter": map[string]any{"term": map[string]any{"status": models.StatusPublished}},
			},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{
		"query":   query,
		"_source": false,
	}); err != nil {
		return Results{}, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithFrom(offset),
		c.es.Search.WithSize(limit),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return Results{}, fmt.Errorf("%w: search: %v", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return Results{}, fmt.Errorf("%w: search: %s: %s", ErrSearch, res.Status(), b)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Results{}, fmt.Errorf("search: decode response: %w", err)
	}

	out := Results{Total: parsed.Hits.Total.Value, IDs: make([]string, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		out.IDs = append(out.IDs, h.ID)
	}
	return out, nil
}
