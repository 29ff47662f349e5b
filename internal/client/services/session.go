// Package services contains the client's application services.
// This file defines the session store: token restoration at startup,
// login/register/logout and profile mutations, keeping persisted storage,
// the transport's bearer header and in-memory state in step.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/postdesk/internal/client/models"
	"github.com/dmitrijs2005/postdesk/internal/common"
	"github.com/dmitrijs2005/postdesk/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultSplashDelay is the minimum time Restore takes.
const DefaultSplashDelay = 3 * time.Second

// ErrRestoreStarted is returned by a second call to Restore.
var ErrRestoreStarted = errors.New("session restore already started")

// AuthAPI is the subset of the transport the session drives.
//
// Contract:
//   - Register, Login: anonymous calls returning the token and its user.
//   - Logout, Me, UpdateProfile, ChangePassword, DeleteAccount: carry the
//     token last passed to SetToken.
//   - SetToken, ClearToken: change the bearer header of every later request.
//
// All network methods must honor context cancellation/timeouts.
type AuthAPI interface {
	Register(ctx context.Context, name, email, password, confirmation string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, name, email string) (*models.User, error)
	ChangePassword(ctx context.Context, current, next, confirmation string) error
	DeleteAccount(ctx context.Context) error
	SetToken(token string)
	ClearToken()
}

// TokenStore is the secure key/value capability holding the raw token.
// Get returns common.ErrorNotFound for a missing key.
type TokenStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

// State is the lifecycle position of the session.
type State int

const (
	StateUnknown State = iota
	StateRestoring
	StateAuthenticated
	StateAnonymous
)

// String returns the lower-case state name used in logs.
func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the session state. Loading stays true until the
// startup restoration has finished.
type Snapshot struct {
	State   State
	Token   string
	User    *models.User
	Loading bool
}

// SessionOption configures a Session in NewSession.
type SessionOption func(*Session)

// WithSplashDelay sets the minimum duration of Restore.
func WithSplashDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.minDelay = d }
}

// WithSessionLogger sets the logger for state transitions.
func WithSessionLogger(l logging.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// Session owns the single authenticated session of the process.
// Network calls are made without holding mu; storage, header and memory are
// changed together under it.
type Session struct {
	api      AuthAPI
	store    TokenStore
	log      logging.Logger
	minDelay time.Duration

	mu      sync.Mutex
	state   State
	token   string
	user    *models.User
	loading bool

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewSession builds a session in StateUnknown; call Restore once at startup.
func NewSession(api AuthAPI, store TokenStore, opts ...SessionOption) *Session {
	s := &Session{
		api:      api,
		store:    store,
		log:      logging.Nop(),
		minDelay: DefaultSplashDelay,
		loading:  true,
		subs:     map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every transition.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify() {
	snap := s.Snapshot()
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Snapshot returns a copy of the current state, token and user.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.state, Token: s.token, Loading: s.loading}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	return s.Snapshot().User
}

// IsAuthenticated reports whether a token with a loaded user is held.
func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// Restore runs once at startup. The minimum splash delay and the token
// restoration run concurrently; the session reaches its terminal state when
// both are done. A stored token whose user probe fails is discarded as on
// logout. The returned error is only ever the context's.
func (s *Session) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnknown {
		s.mu.Unlock()
		return ErrRestoreStarted
	}
	s.state = StateRestoring
	s.mu.Unlock()
	s.notify()

	var (
		token string
		user  *models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sleepCtx(gctx, s.minDelay)
	})
	g.Go(func() error {
		token, user = s.restoreToken(gctx)
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	s.loading = false
	if user != nil && err == nil {
		s.state, s.token, s.user = StateAuthenticated, token, user
	} else {
		if user != nil {
			s.api.ClearToken()
		}
		s.state, s.token, s.user = StateAnonymous, "", nil
	}
	state := s.state
	s.mu.Unlock()

	s.log.Info(ctx, "session restored", "state", state.String())
	s.notify()
	return err
}

// restoreToken reads the persisted token and probes it. The bearer header is
// set before the probe and cleared again when the probe fails.
func (s *Session) restoreToken(ctx context.Context) (string, *models.User) {
	token, err := s.store.Get(ctx, common.TokenKey)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "read stored token", "error", err)
		}
		return "", nil
	}
	if token == "" {
		return "", nil
	}

	s.api.SetToken(token)
	user, err := s.api.Me(ctx)
	if err == nil {
		return token, user
	}

	s.log.Info(ctx, "stored token rejected", "error", err)
	if ctx.Err() != nil {
		// Interrupted, not rejected: keep the token for the next start.
		s.api.ClearToken()
		return "", nil
	}
	if err := s.api.Logout(ctx); err != nil {
		s.log.Debug(ctx, "server logout", "error", err)
	}
	s.api.ClearToken()
	if err := s.store.Delete(ctx, common.TokenKey); err != nil {
		s.log.Warn(ctx, "delete stored token", "error", err)
	}
	return "", nil
}

// Login signs in with email and password. On success the token is persisted,
// attached to the transport and the session becomes authenticated. API
// errors are returned unchanged; nothing is retried.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Register creates an account and signs in with it, with the same contract
// as Login.
func (s *Session) Register(ctx context.Context, name, email, password, confirmation string) (*models.User, error) {
	res, err := s.api.Register(ctx, name, email, password, confirmation)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// establish persists the token first; header and memory follow only when
// that succeeded.
func (s *Session) establish(ctx context.Context, res *models.AuthResult) error {
	s.mu.Lock()
	if err := s.store.Set(ctx, common.TokenKey, res.Token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save token: %w", err)
	}
	s.api.SetToken(res.Token)
	u := res.User
	s.state, s.token, s.user = StateAuthenticated, res.Token, &u
	s.mu.Unlock()

	s.log.Info(ctx, "signed in", "user_id", u.ID)
	s.notify()
	return nil
}

// Logout notifies the server on a best-effort basis and then always clears
// the local session. Only a local storage failure is returned.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn(ctx, "server logout failed", "error", err)
	}
	return s.clear(ctx)
}

// Expire drops the session after the server rejected token. It is a no-op
// when token is no longer the current one.
func (s *Session) Expire(ctx context.Context, token string) {
	s.mu.Lock()
	current := s.state == StateAuthenticated && s.token == token
	s.mu.Unlock()
	if !current {
		return
	}
	s.log.Warn(ctx, "session expired")
	if err := s.clear(ctx); err != nil {
		s.log.Error(ctx, "clear expired session", "error", err)
	}
}

// UpdateProfile changes the name and email of the signed-in user. The
// returned user replaces the in-memory one only if the session that issued
// the request is still current; a logout or expiry that lands while the
// request is in flight wins.
func (s *Session) UpdateProfile(ctx context.Context, name, email string) (*models.User, error) {
	s.mu.Lock()
	issuedWith := s.token
	s.mu.Unlock()

	user, err := s.api.UpdateProfile(ctx, name, email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	current := s.state == StateAuthenticated && s.token == issuedWith
	if current {
		u := *user
		s.user = &u
	}
	s.mu.Unlock()

	if !current {
		s.log.Debug(ctx, "profile update ignored, session changed")
		return user, nil
	}
	s.notify()
	return user, nil
}

// ChangePassword changes the account password. The session is unchanged
// either way.
func (s *Session) ChangePassword(ctx context.Context, current, next, confirmation string) error {
	return s.api.ChangePassword(ctx, current, next, confirmation)
}

// DeleteAccount destroys the account on the server and then clears the local
// session. A server failure leaves the session as it was.
func (s *Session) DeleteAccount(ctx context.Context) error {
	if err := s.api.DeleteAccount(ctx); err != nil {
		return err
	}
	return s.clear(ctx)
}

// clear removes the token from storage, header and memory. Header and memory
// are cleared even when storage fails.
func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.store.Delete(ctx, common.TokenKey)
	if errors.Is(err, common.ErrorNotFound) {
		err = nil
	}
	s.api.ClearToken()
	changed := s.state != StateAnonymous || s.token != ""
	s.state, s.token, s.user = StateAnonymous, "", nil
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
