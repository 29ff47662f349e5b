package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dmitrijs2005/postdesk/internal/client/api"
	"github.com/dmitrijs2005/postdesk/internal/client/config"
	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/dmitrijs2005/postdesk/internal/client/postlist"
	"github.com/dmitrijs2005/postdesk/internal/client/preferences"
	"github.com/dmitrijs2005/postdesk/internal/client/repositories/keyvalue"
	"github.com/dmitrijs2005/postdesk/internal/client/securestore"
	"github.com/dmitrijs2005/postdesk/internal/client/services"
	"github.com/dmitrijs2005/postdesk/internal/client/storage"
	"github.com/dmitrijs2005/postdesk/internal/logging"
)

// themeStore is the preferences capability used by the theme command.
type themeStore interface {
	DarkMode(ctx context.Context) (bool, error)
	ToggleDarkMode(ctx context.Context) (bool, error)
}

type App struct {
	config  *config.Config
	log     logging.Logger
	session *services.Session
	posts   *services.PostService
	fetcher postlist.Fetcher
	theme   themeStore
	db      *sql.DB

	reader *bufio.Reader
	out    io.Writer

	list    *postlist.Controller
	changed chan struct{}
}

// NewApp opens local storage and wires transport, session and services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	secure, err := securestore.Open(ctx, db, c.KeyFilePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open secure store: %w", err)
	}

	tr := api.NewTransport(c.BaseURL, api.WithTimeout(c.RequestTimeout), api.WithLogger(log))
	session := services.NewSession(tr, secure,
		services.WithSplashDelay(c.SplashMinDelay),
		services.WithSessionLogger(log))
	tr.OnUnauthorized(session.Expire)

	app := newApp(c, log, session, services.NewPostService(tr), tr,
		preferences.New(keyvalue.NewSQLiteRepository(db)), bufio.NewReader(os.Stdin), os.Stdout)
	app.db = db
	return app, nil
}

func newApp(c *config.Config, log logging.Logger, session *services.Session, posts *services.PostService,
	fetcher postlist.Fetcher, theme themeStore, reader *bufio.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		log:     log,
		session: session,
		posts:   posts,
		fetcher: fetcher,
		theme:   theme,
		reader:  reader,
		out:     out,
		changed: make(chan struct{}, 1),
	}
}

// Run shows the splash while the saved session is restored, then runs the
// REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	unsubscribe := a.session.Subscribe(func(s services.Snapshot) {
		a.log.Debug(ctx, "session state changed", "state", s.State.String())
	})
	defer unsubscribe()

	a.splash(ctx)
	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}

func (a *App) splash(ctx context.Context) {
	fmt.Fprintln(a.out, "postdesk")
	fmt.Fprintln(a.out, "Loading...")

	if err := a.session.Restore(ctx); err != nil {
		a.log.Warn(ctx, "session restore interrupted", "error", err)
	}

	if u := a.session.User(); u != nil {
		fmt.Fprintf(a.out, "Welcome back, %s!\n", u.Name)
	} else {
		fmt.Fprintln(a.out, "Please log in or register (type 'help' for commands).")
	}
}

// Close stops the open list and releases local storage.
func (a *App) Close() {
	a.closeList()
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) status() string {
	s := "guest"
	if u := a.session.User(); u != nil {
		s = u.Email
	}
	if dark, err := a.theme.DarkMode(context.Background()); err == nil && dark {
		s += " ☾"
	}
	return s
}

// fail prints a user-facing message for err and returns err. Field-level
// validation messages are listed one per line; otherwise the server's
// message is shown, or fallback when there is none.
func (a *App) fail(fallback string, err error) error {
	if fields := api.FieldErrors(err); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(a.out, "  %s: %s\n", name, fields[name])
		}
		return err
	}
	fmt.Fprintln(a.out, api.Message(err, fallback))
	return err
}

// failAuthed is fail for calls made with the session token. A rejected
// token has already expired the session, so the list is dropped too.
func (a *App) failAuthed(fallback string, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		a.closeList()
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
		return err
	}
	return a.fail(fallback, err)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// ListChanged and ListFailed make App the observer of its list controller.
func (a *App) ListChanged(postlist.Snapshot) {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

func (a *App) ListFailed(err error) {
	a.log.Debug(context.Background(), "list request failed", "error", err)
}

func (a *App) openList(ctx context.Context, status models.PostStatus) {
	a.closeList()
	a.list = postlist.New(a.fetcher, status,
		postlist.WithDebounce(a.config.SearchDebounce),
		postlist.WithPageSize(a.config.PageSize),
		postlist.WithObserver(a),
		postlist.WithLogger(a.log))
	a.list.Start(ctx)
}

func (a *App) closeList() {
	if a.list != nil {
		a.list.Close()
		a.list = nil
	}
}

// awaitList blocks until the list has no pending search and no outstanding
// request of the current query.
func (a *App) awaitList(ctx context.Context) (postlist.Snapshot, error) {
	for {
		s := a.list.Snapshot()
		if !s.SearchPending && !s.Loading() {
			return s, s.Err
		}
		select {
		case <-a.changed:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}
