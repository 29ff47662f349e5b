package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/postdesk/internal/client/api"
	"github.com/dmitrijs2005/postdesk/internal/client/api/apitest"
	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService(t *testing.T) (*apitest.Server, *PostService) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	tr := api.NewTransport(srv.BaseURL())
	tr.SetToken(srv.AddUser("Ann", "ann@example.com", "secret123"))
	return srv, NewPostService(tr)
}

func TestPostService_CreateValidatesBeforeRequest(t *testing.T) {
	srv, svc := newPostService(t)

	_, err := svc.Create(context.Background(), models.PostInput{Title: "  ", Body: "", Status: "archived"})
	require.ErrorIs(t, err, api.ErrValidation)

	fields := api.FieldErrors(err)
	assert.Equal(t, "Title is required.", fields["title"])
	assert.Equal(t, "Body is required.", fields["body"])
	assert.Contains(t, fields, "status")
	assert.Zero(t, srv.Calls("/posts"))
}

func TestPostService_CreateDefaultsToDraft(t *testing.T) {
	_, svc := newPostService(t)

	p, err := svc.Create(context.Background(), models.PostInput{Title: " Hello ", Body: "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, models.StatusDraft, p.Status)
}

func TestPostService_UpdateGetDelete(t *testing.T) {
	srv, svc := newPostService(t)
	ctx := context.Background()
	srv.AddPosts(1, "First", models.StatusDraft)

	p, err := svc.Update(ctx, 1, models.PostInput{Title: "Renamed", Body: "Text", Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, p.Status)

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	_, err = svc.Update(ctx, 1, models.PostInput{Body: "x", Status: models.StatusDraft})
	require.ErrorIs(t, err, api.ErrValidation)

	require.NoError(t, svc.Delete(ctx, 1))
	_, err = svc.Get(ctx, 1)
	require.ErrorIs(t, err, api.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 1), api.ErrNotFound)
}

func TestPostService_Stats(t *testing.T) {
	srv, svc := newPostService(t)
	srv.AddPosts(3, "P", models.StatusPublished)
	srv.AddPosts(1, "D", models.StatusDraft)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Published)
	assert.Equal(t, 1, stats.Drafts)
	assert.NotEmpty(t, stats.LatestMonth())
	assert.Equal(t, 4, stats.AverageMonthly())
}
