// Package postlist keeps the state of one filterable, searchable, paginated
// posts list: debounced search, incremental loading, refresh and discarding of
// responses that belong to a superseded query.
package postlist

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/dmitrijs2005/postdesk/internal/logging"
)

// Defaults for a Controller built without options.
const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultPageSize = 10
)

// Fetcher loads one page of posts.
type Fetcher interface {
	ListPosts(ctx context.Context, q models.PostQuery) (*models.PostPage, error)
}

// Observer receives the list state after every change, and fetch failures.
// Calls are made without the controller lock held.
type Observer interface {
	ListChanged(s Snapshot)
	ListFailed(err error)
}

type nopObserver struct{}

func (nopObserver) ListChanged(Snapshot) {}
func (nopObserver) ListFailed(error)     {}

type kind int

const (
	kindInitial kind = iota
	kindSearch
	kindMore
	kindRefresh
)

type request struct {
	id     uint64
	epoch  uint64
	page   int
	kind   kind
	cancel context.CancelFunc
}

// Snapshot is a copy of the list state. The loading flags only account for
// requests of the current epoch.
type Snapshot struct {
	Items    []models.Post
	Page     int
	LastPage int
	Total    int
	PageSize int
	Search   string
	Status   models.PostStatus
	Epoch    uint64

	InitialLoading bool
	Refreshing     bool
	LoadingMore    bool
	Searching      bool
	SearchPending  bool

	// Err is the failure of the latest current-epoch request, cleared when
	// the next request is issued.
	Err error
}

// Loading reports whether any current request is outstanding.
func (s Snapshot) Loading() bool {
	return s.InitialLoading || s.Refreshing || s.LoadingMore || s.Searching
}

// Option configures a Controller in New.
type Option func(*Controller)

// WithDebounce sets the quiet period after the last SetSearch call.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithScheduler replaces the timer-backed scheduler used for debouncing.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithPageSize sets the page size used for range text. Non-positive values
// are ignored.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithObserver registers o for state changes and fetch failures.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithLogger sets the logger for fetch failures and discarded pages.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns the list state for one status filter. Fetches run in their
// own goroutines; their results are applied under mu after checking that the
// request is still in flight and belongs to the current epoch.
type Controller struct {
	fetcher  Fetcher
	status   models.PostStatus
	debounce time.Duration
	pageSize int
	sched    Scheduler
	observer Observer
	log      logging.Logger

	mu         sync.Mutex
	ctx        context.Context
	started    bool
	closed     bool
	epoch      uint64
	search     string
	pending    Task
	pendingSeq uint64

	items    []models.Post
	page     int
	lastPage int
	total    int

	inflight map[uint64]*request
	nextID   uint64
	lastErr  error
	wg       sync.WaitGroup
}

// New builds a controller for the given status filter, which stays fixed for
// the controller's lifetime.
func New(fetcher Fetcher, status models.PostStatus, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		status:   status,
		debounce: DefaultDebounce,
		pageSize: DefaultPageSize,
		sched:    TimerScheduler{},
		observer: nopObserver{},
		log:      logging.Nop(),
		page:     1,
		lastPage: 1,
		inflight: map[uint64]*request{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start performs the initial load of page 1 under a fresh epoch. Requests
// issued later derive their context from ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx = ctx
	c.newEpoch()
	c.issue(kindInitial, 1)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.observer.ListChanged(snap)
}

// SetSearch schedules a search for text after the debounce window, replacing
// any search scheduled before. Nothing is fetched until the window elapses
// without another call.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.pendingSeq++
	if text != c.search {
		seq := c.pendingSeq
		c.pending = c.sched.Schedule(c.debounce, func() { c.fireSearch(seq, text) })
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.observer.ListChanged(snap)
}

func (c *Controller) fireSearch(seq uint64, text string) {
	c.mu.Lock()
	if c.closed || seq != c.pendingSeq || c.pending == nil {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.search = text
	c.newEpoch()
	if c.started {
		c.issue(kindSearch, 1)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug(context.Background(), "search fired", "search", text, "epoch", snap.Epoch)
	c.observer.ListChanged(snap)
}

// LoadMore requests the next page. It reports false, doing nothing, while a
// request of the current epoch is outstanding, while a search is pending, or
// when the last page is already loaded.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if !c.started || c.closed || c.pending != nil || c.busyLocked() || c.page >= c.lastPage {
		c.mu.Unlock()
		return false
	}
	c.issue(kindMore, c.page+1)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.observer.ListChanged(snap)
	return true
}

// Refresh re-fetches page 1 under the current epoch. Every outstanding
// request is cancelled first, so a page still in flight can never be applied
// after the refreshed page 1.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if !c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelAllLocked()
	c.issue(kindRefresh, 1)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.observer.ListChanged(snap)
}

// Close stops a pending search and cancels outstanding requests.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.cancelAllLocked()
	c.mu.Unlock()
}

// Wait blocks until every issued request has been applied or discarded.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot returns a copy of the list state, items included.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// newEpoch starts a new query: items are cleared and paging resets.
func (c *Controller) newEpoch() {
	c.epoch++
	c.items = nil
	c.page, c.lastPage, c.total = 1, 1, 0
}

func (c *Controller) issue(k kind, page int) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.nextID++
	req := &request{id: c.nextID, epoch: c.epoch, page: page, kind: k, cancel: cancel}
	c.inflight[req.id] = req
	c.lastErr = nil
	q := models.PostQuery{Page: page, Search: c.search, Status: c.status}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		res, err := c.fetcher.ListPosts(ctx, q)
		c.apply(req, res, err)
	}()
}

func (c *Controller) apply(req *request, res *models.PostPage, err error) {
	c.mu.Lock()
	if _, ok := c.inflight[req.id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.inflight, req.id)

	if req.epoch != c.epoch {
		c.mu.Unlock()
		c.log.Debug(c.ctx, "stale page discarded", "page", req.page, "epoch", req.epoch)
		return
	}

	if err != nil {
		c.lastErr = err
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Warn(c.ctx, "load posts failed", "page", req.page, "error", err)
		c.observer.ListFailed(err)
		c.observer.ListChanged(snap)
		return
	}

	if req.page == 1 {
		c.items = append([]models.Post(nil), res.Items...)
	} else {
		c.items = append(c.items, res.Items...)
	}
	c.page = req.page
	c.lastPage = res.LastPage
	c.total = res.Total
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.observer.ListChanged(snap)
}

func (c *Controller) cancelAllLocked() {
	for id, r := range c.inflight {
		r.cancel()
		delete(c.inflight, id)
	}
}

func (c *Controller) busyLocked() bool {
	for _, r := range c.inflight {
		if r.epoch == c.epoch {
			return true
		}
	}
	return false
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Items:         append([]models.Post(nil), c.items...),
		Page:          c.page,
		LastPage:      c.lastPage,
		Total:         c.total,
		PageSize:      c.pageSize,
		Search:        c.search,
		Status:        c.status,
		Epoch:         c.epoch,
		SearchPending: c.pending != nil,
		Err:           c.lastErr,
	}
	for _, r := range c.inflight {
		if r.epoch != c.epoch {
			continue
		}
		switch r.kind {
		case kindInitial:
			s.InitialLoading = true
		case kindSearch:
			s.Searching = true
		case kindMore:
			s.LoadingMore = true
		case kindRefresh:
			s.Refreshing = true
		}
	}
	return s
}
