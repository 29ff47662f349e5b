package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/postdesk/internal/client/models"
)

// ListPosts fetches one page of posts. Empty search and status are omitted
// from the query string.
func (t *Transport) ListPosts(ctx context.Context, q models.PostQuery) (*models.PostPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Status != models.StatusAny {
		params.Set("status", string(q.Status))
	}

	var out models.PostPage
	if err := t.doJSON(ctx, http.MethodGet, "/posts", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostStats fetches the dashboard counters and the monthly series.
func (t *Transport) PostStats(ctx context.Context) (*models.PostStats, error) {
	var out models.PostStats
	if err := t.doJSON(ctx, http.MethodGet, "/posts-stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPost fetches one post; a missing post matches ErrNotFound.
func (t *Transport) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var out models.Post
	if err := t.doJSON(ctx, http.MethodGet, postPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost sends in as JSON and returns the created post.
func (t *Transport) CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	var out models.Post
	if err := t.doJSON(ctx, http.MethodPost, "/posts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost sends the fields as multipart form data over POST with a
// _method=PUT override, which is what the API accepts for updates.
func (t *Transport) UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error) {
	body, err := updateForm(in)
	if err != nil {
		return nil, err
	}
	var out models.Post
	if err := t.do(ctx, http.MethodPost, postPath(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost removes post id.
func (t *Transport) DeletePost(ctx context.Context, id int64) error {
	return t.doJSON(ctx, http.MethodDelete, postPath(id), nil, nil, nil)
}

func postPath(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}

func updateForm(in models.PostInput) (*requestBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"_method", http.MethodPut},
		{"title", in.Title},
		{"body", in.Body},
		{"status", string(in.Status)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	return &requestBody{reader: &buf, contentType: w.FormDataContentType()}, nil
}
