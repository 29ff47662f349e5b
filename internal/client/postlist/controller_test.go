package postlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/postdesk/internal/client/api"
	"github.com/dmitrijs2005/postdesk/internal/client/api/apitest"
	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type result struct {
	page *models.PostPage
	err  error
}

type call struct {
	ctx  context.Context
	q    models.PostQuery
	done chan result
}

// fakeFetcher hands every request to the test, which answers it explicitly.
type fakeFetcher struct {
	calls chan *call
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *call, 64)}
}

func (f *fakeFetcher) ListPosts(ctx context.Context, q models.PostQuery) (*models.PostPage, error) {
	c := &call{ctx: ctx, q: q, done: make(chan result, 1)}
	f.calls <- c
	select {
	case r := <-c.done:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a fetch")
		return nil
	}
}

func (f *fakeFetcher) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch %+v", c.q)
	case <-time.After(30 * time.Millisecond):
	}
}

func (c *call) reply(page *models.PostPage) { c.done <- result{page: page} }
func (c *call) fail(err error)              { c.done <- result{err: err} }

func posts(prefix string, n int) []models.Post {
	out := make([]models.Post, n)
	for i := range out {
		out[i] = models.Post{ID: int64(i + 1), Title: fmt.Sprintf("%s %d", prefix, i+1), Status: models.StatusPublished}
	}
	return out
}

func titles(items []models.Post) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Title
	}
	return out
}

type recorder struct {
	mu       sync.Mutex
	changes  int
	failures []error
}

func (r *recorder) ListChanged(Snapshot) {
	r.mu.Lock()
	r.changes++
	r.mu.Unlock()
}

func (r *recorder) ListFailed(err error) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
}

func (r *recorder) failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

func started(t *testing.T, lastPage int, opts ...Option) (*Controller, *fakeFetcher, *ManualScheduler, *recorder) {
	t.Helper()
	f := newFakeFetcher()
	sched := &ManualScheduler{}
	rec := &recorder{}
	c := New(f, models.StatusAny, append([]Option{WithScheduler(sched), WithObserver(rec)}, opts...)...)
	t.Cleanup(c.Close)

	c.Start(context.Background())
	f.next(t).reply(&models.PostPage{Items: posts("Post", 10), LastPage: lastPage, Total: lastPage * 10})
	require.Eventually(t, func() bool { return !c.Snapshot().Loading() }, time.Second, time.Millisecond)
	return c, f, sched, rec
}

// ---- scenarios against the fake API ----

func TestController_PagesThroughServer(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	tr := api.NewTransport(srv.BaseURL())
	tr.SetToken(srv.AddUser("Ann", "ann@example.com", "secret123"))
	srv.AddPosts(25, "Post", models.StatusPublished)
	srv.AddPosts(4, "Draft", models.StatusDraft)

	c := New(tr, models.StatusPublished)
	defer c.Close()

	c.Start(context.Background())
	c.Wait()
	s := c.Snapshot()
	require.Len(t, s.Items, 10)
	assert.Equal(t, "Showing 1–10 of 25 posts", RangeText(s))
	assert.False(t, AllLoaded(s))

	require.True(t, c.LoadMore())
	c.Wait()
	s = c.Snapshot()
	assert.Len(t, s.Items, 20)
	assert.Equal(t, 2, s.Page)
	assert.Equal(t, "Showing 1–20 of 25 posts", RangeText(s))

	require.True(t, c.LoadMore())
	c.Wait()
	s = c.Snapshot()
	assert.Len(t, s.Items, 25)
	assert.True(t, AllLoaded(s))
	assert.Equal(t, "All 25 posts loaded", AllLoadedText(s))
	assert.False(t, c.LoadMore())

	seen := map[int64]bool{}
	for _, p := range s.Items {
		assert.Equal(t, models.StatusPublished, p.Status)
		assert.False(t, seen[p.ID], "duplicate post %d", p.ID)
		seen[p.ID] = true
	}
}

func TestController_SearchThroughServer(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	tr := api.NewTransport(srv.BaseURL())
	tr.SetToken(srv.AddUser("Ann", "ann@example.com", "secret123"))
	srv.AddPosts(12, "Alpha", models.StatusPublished)
	srv.AddPosts(3, "Beta", models.StatusDraft)

	sched := &ManualScheduler{}
	c := New(tr, models.StatusAny, WithScheduler(sched))
	defer c.Close()
	c.Start(context.Background())
	c.Wait()
	assert.Equal(t, 15, c.Snapshot().Total)

	c.SetSearch("beta")
	sched.Advance(DefaultDebounce)
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, "beta", s.Search)
	assert.Equal(t, "Showing 1–3 of 3 posts", RangeText(s))

	c.SetSearch("gamma")
	sched.Advance(DefaultDebounce)
	c.Wait()
	s = c.Snapshot()
	assert.Equal(t, EmptyNoResults, Empty(s))
	assert.Equal(t, "No posts found", RangeText(s))
}

// ---- debounce ----

func TestController_DebounceCoalescesKeystrokes(t *testing.T) {
	c, f, sched, _ := started(t, 1)

	c.SetSearch("a")
	sched.Advance(200 * time.Millisecond)
	c.SetSearch("ab")
	sched.Advance(200 * time.Millisecond)
	c.SetSearch("abc")
	assert.Equal(t, 1, sched.Pending())
	assert.True(t, c.Snapshot().SearchPending)

	sched.Advance(499 * time.Millisecond)
	f.none(t)

	sched.Advance(time.Millisecond)
	got := f.next(t)
	assert.Equal(t, models.PostQuery{Page: 1, Search: "abc", Status: models.StatusAny}, got.q)
	f.none(t)

	s := c.Snapshot()
	assert.False(t, s.SearchPending)
	assert.True(t, s.Searching)
	assert.Empty(t, s.Items, "a new query starts from an empty list")
	assert.Equal(t, 1, s.Page)
	got.reply(&models.PostPage{Items: posts("abc", 2), LastPage: 1, Total: 2})
}

func TestController_SameSearchIsIgnored(t *testing.T) {
	c, f, sched, _ := started(t, 1)

	c.SetSearch("x")
	c.SetSearch("")
	assert.Equal(t, 0, sched.Pending())
	sched.Advance(time.Second)
	f.none(t)
	assert.EqualValues(t, 1, c.Snapshot().Epoch)
}

func TestController_SearchBeforeStartIsUsedByStart(t *testing.T) {
	f := newFakeFetcher()
	sched := &ManualScheduler{}
	c := New(f, models.StatusDraft, WithScheduler(sched))
	defer c.Close()

	c.SetSearch("early")
	sched.Advance(DefaultDebounce)
	f.none(t)

	c.Start(context.Background())
	got := f.next(t)
	assert.Equal(t, "early", got.q.Search)
	assert.Equal(t, models.StatusDraft, got.q.Status)
	got.reply(&models.PostPage{LastPage: 1})
}

// ---- epochs ----

func TestController_StaleEpochDiscarded(t *testing.T) {
	f := newFakeFetcher()
	sched := &ManualScheduler{}
	c := New(f, models.StatusAny, WithScheduler(sched))
	defer c.Close()

	c.Start(context.Background())
	first := f.next(t)

	c.SetSearch("new")
	sched.Advance(DefaultDebounce)
	second := f.next(t)
	assert.EqualValues(t, 2, c.Snapshot().Epoch)

	second.reply(&models.PostPage{Items: posts("New", 2), LastPage: 1, Total: 2})
	require.Eventually(t, func() bool { return len(c.Snapshot().Items) == 2 }, time.Second, time.Millisecond)

	first.reply(&models.PostPage{Items: posts("Old", 10), LastPage: 5, Total: 50})
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, []string{"New 1", "New 2"}, titles(s.Items))
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.LastPage)
}

func TestController_StaleRequestDoesNotBlockLoadMore(t *testing.T) {
	c, f, sched, _ := started(t, 3)

	require.True(t, c.LoadMore())
	stale := f.next(t)

	c.SetSearch("q")
	sched.Advance(DefaultDebounce)
	fresh := f.next(t)
	fresh.reply(&models.PostPage{Items: posts("Q", 10), LastPage: 2, Total: 15})
	require.Eventually(t, func() bool { return c.Snapshot().Total == 15 }, time.Second, time.Millisecond)

	assert.False(t, c.Snapshot().LoadingMore)
	require.True(t, c.LoadMore())
	more := f.next(t)
	assert.Equal(t, models.PostQuery{Page: 2, Search: "q"}, more.q)

	stale.reply(&models.PostPage{Items: posts("Stale", 10), LastPage: 3, Total: 30})
	more.reply(&models.PostPage{Items: posts("Q2", 5), LastPage: 2, Total: 15})
	c.Wait()
	assert.Len(t, c.Snapshot().Items, 15)
}

// ---- load more ----

func TestController_LoadMoreSingleFlight(t *testing.T) {
	c, f, _, _ := started(t, 3)

	require.True(t, c.LoadMore())
	for range 5 {
		assert.False(t, c.LoadMore())
	}
	got := f.next(t)
	assert.Equal(t, 2, got.q.Page)
	f.none(t)
	assert.True(t, c.Snapshot().LoadingMore)

	got.reply(&models.PostPage{Items: posts("More", 10), LastPage: 3, Total: 30})
	require.Eventually(t, func() bool { return c.Snapshot().Page == 2 }, time.Second, time.Millisecond)

	s := c.Snapshot()
	assert.False(t, s.LoadingMore)
	assert.Len(t, s.Items, 20)
	assert.Equal(t, "Post 1", s.Items[0].Title)
	assert.Equal(t, "More 1", s.Items[10].Title)
}

func TestController_LoadMoreWhileSearchPending(t *testing.T) {
	c, f, _, _ := started(t, 3)

	c.SetSearch("pending")
	assert.False(t, c.LoadMore())
	f.none(t)
}

func TestController_LoadMoreOnLastPage(t *testing.T) {
	c, f, _, _ := started(t, 1)

	assert.False(t, c.LoadMore())
	f.none(t)
	assert.True(t, AllLoaded(c.Snapshot()))
}

func TestController_LoadMoreBeforeStart(t *testing.T) {
	c := New(newFakeFetcher(), models.StatusAny)
	assert.False(t, c.LoadMore())
}

// ---- refresh ----

func TestController_RefreshCancelsInFlight(t *testing.T) {
	c, f, _, rec := started(t, 3)

	require.True(t, c.LoadMore())
	more := f.next(t)

	c.Refresh()
	refresh := f.next(t)
	assert.Equal(t, 1, refresh.q.Page)
	assert.Error(t, more.ctx.Err(), "outstanding page must be cancelled")

	s := c.Snapshot()
	assert.True(t, s.Refreshing)
	assert.False(t, s.LoadingMore)
	assert.Len(t, s.Items, 10, "refresh keeps the list until page 1 arrives")
	assert.EqualValues(t, 1, s.Epoch)

	refresh.reply(&models.PostPage{Items: posts("Fresh", 10), LastPage: 4, Total: 40})
	c.Wait()

	s = c.Snapshot()
	assert.Equal(t, "Fresh 1", s.Items[0].Title)
	assert.Len(t, s.Items, 10)
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 4, s.LastPage)
	assert.EqualValues(t, 1, s.Epoch, "refresh does not start a new epoch")
	assert.Zero(t, rec.failed())
}

func TestController_RefreshTwice(t *testing.T) {
	c, f, _, _ := started(t, 1)

	c.Refresh()
	first := f.next(t)
	c.Refresh()
	second := f.next(t)
	assert.Error(t, first.ctx.Err())

	second.reply(&models.PostPage{Items: posts("Second", 3), LastPage: 1, Total: 3})
	c.Wait()
	assert.Equal(t, []string{"Second 1", "Second 2", "Second 3"}, titles(c.Snapshot().Items))
}

// ---- failures ----

func TestController_FailureLeavesItems(t *testing.T) {
	c, f, _, rec := started(t, 3)

	require.True(t, c.LoadMore())
	f.next(t).fail(api.ErrUnavailable)
	require.Eventually(t, func() bool { return rec.failed() == 1 }, time.Second, time.Millisecond)

	s := c.Snapshot()
	assert.Len(t, s.Items, 10)
	assert.Equal(t, 1, s.Page)
	assert.False(t, s.Loading())
	assert.ErrorIs(t, s.Err, api.ErrUnavailable)

	rec.mu.Lock()
	assert.True(t, errors.Is(rec.failures[0], api.ErrUnavailable))
	rec.mu.Unlock()

	require.True(t, c.LoadMore(), "retry is allowed after a failure")
	assert.NoError(t, c.Snapshot().Err, "issuing clears the last failure")
	f.next(t).reply(&models.PostPage{Items: posts("More", 10), LastPage: 3, Total: 30})
	c.Wait()
	assert.Len(t, c.Snapshot().Items, 20)
}

func TestController_InitialFailure(t *testing.T) {
	f := newFakeFetcher()
	rec := &recorder{}
	c := New(f, models.StatusAny, WithObserver(rec))
	defer c.Close()

	c.Start(context.Background())
	assert.True(t, c.Snapshot().InitialLoading)
	f.next(t).fail(errors.New("boom"))
	c.Wait()

	s := c.Snapshot()
	assert.False(t, s.InitialLoading)
	assert.Equal(t, 1, rec.failed())
	assert.Equal(t, EmptyNoPosts, Empty(s))
}

// ---- close ----

func TestController_Close(t *testing.T) {
	c, f, sched, _ := started(t, 3)

	require.True(t, c.LoadMore())
	more := f.next(t)
	c.SetSearch("late")
	c.Close()

	assert.Error(t, more.ctx.Err())
	assert.Equal(t, 0, sched.Pending())
	sched.Advance(time.Second)
	f.none(t)
	c.Wait()
	assert.False(t, c.LoadMore())
	assert.Len(t, c.Snapshot().Items, 10)
}

func TestController_PageSizeOption(t *testing.T) {
	c, _, _, _ := started(t, 2, WithPageSize(25), WithDebounce(time.Second))
	s := c.Snapshot()
	assert.Equal(t, 25, s.PageSize)
	assert.Equal(t, "Showing 1–20 of 20 posts", RangeText(s))
}
