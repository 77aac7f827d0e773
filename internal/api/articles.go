package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Article is a published news or guidance article. Content is HTML.
type Article struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Author      string     `json:"author,omitempty"`
	Status      string     `json:"status,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewArticle is the payload for CreateArticle.
type NewArticle struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
	Status  string `json:"status,omitempty"`
}

type articlesResponse struct {
	Data []Article `json:"data"`
}

type articleResponse struct {
	Data Article `json:"data"`
}

// ListArticles returns every article, optionally narrowed by status.
func (c *Client) ListArticles(ctx context.Context, status string) ([]Article, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var resp articlesResponse
	if err := c.doJSON(ctx, "list articles", http.MethodGet, "/articles", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetArticle returns a single article.
func (c *Client) GetArticle(ctx context.Context, id int) (*Article, error) {
	var resp articleResponse
	if err := c.doJSON(ctx, "get article", http.MethodGet, "/articles/"+strconv.Itoa(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CreateArticle publishes a new article and returns it as stored.
func (c *Client) CreateArticle(ctx context.Context, in NewArticle) (*Article, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("article title is required")
	}
	var resp articleResponse
	if err := c.doJSON(ctx, "create article", http.MethodPost, "/articles", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteArticle removes an article.
func (c *Client) DeleteArticle(ctx context.Context, id int) error {
	return c.doJSON(ctx, "delete article", http.MethodDelete, "/articles/"+strconv.Itoa(id), nil, nil, nil)
}
