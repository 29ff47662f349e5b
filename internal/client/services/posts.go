package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/postdesk/internal/client/api"
	"github.com/dmitrijs2005/postdesk/internal/client/models"
)

// PostsAPI is the subset of the transport used for single-post screens.
type PostsAPI interface {
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	PostStats(ctx context.Context) (*models.PostStats, error)
}

// PostService validates input locally before forwarding CRUD calls.
type PostService struct {
	api PostsAPI
}

// NewPostService builds a PostService over api.
func NewPostService(api PostsAPI) *PostService {
	return &PostService{api: api}
}

// Get fetches one post by id.
func (s *PostService) Get(ctx context.Context, id int64) (*models.Post, error) {
	return s.api.GetPost(ctx, id)
}

// Create validates in and creates a post; an empty status becomes draft.
func (s *PostService) Create(ctx context.Context, in models.PostInput) (*models.Post, error) {
	in, err := normalizePost(in)
	if err != nil {
		return nil, err
	}
	return s.api.CreatePost(ctx, in)
}

// Update validates in and replaces the fields of post id.
func (s *PostService) Update(ctx context.Context, id int64, in models.PostInput) (*models.Post, error) {
	in, err := normalizePost(in)
	if err != nil {
		return nil, err
	}
	return s.api.UpdatePost(ctx, id, in)
}

// Delete removes post id.
func (s *PostService) Delete(ctx context.Context, id int64) error {
	return s.api.DeletePost(ctx, id)
}

// Stats fetches the dashboard counters.
func (s *PostService) Stats(ctx context.Context) (*models.PostStats, error) {
	return s.api.PostStats(ctx)
}

// normalizePost trims title and body and defaults an empty status to draft.
func normalizePost(in models.PostInput) (models.PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if in.Status == models.StatusAny {
		in.Status = models.StatusDraft
	}

	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "Title is required."
	}
	if in.Body == "" {
		fields["body"] = "Body is required."
	}
	if in.Status != models.StatusPublished && in.Status != models.StatusDraft {
		fields["status"] = models.ErrUnknownStatus.Error()
	}
	if len(fields) > 0 {
		return in, api.NewValidationError("Please fix the highlighted fields.", fields)
	}
	return in, nil
}
