// Package store contains the client-side state stores: the authenticated
// session and the item collection. Stores are plain injected objects — they
// are created once at startup and handed to whatever layer renders them,
// never reached through package globals.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
)

// SessionStore owns the current session and user identity.
//
// Every item operation requires a resolved user; the item store re-reads
// CurrentUser at the start of each call rather than caching it, so an
// operation started after sign-out correctly fails its auth check.
type SessionStore struct {
	auth   remote.AuthService
	logger *slog.Logger

	mu          sync.Mutex
	session     *model.Session
	loading     bool
	initialized bool

	nextSubID   int
	subscribers map[int]func(*model.User)
}

// NewSessionStore creates a SessionStore backed by the given auth service.
func NewSessionStore(auth remote.AuthService, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		auth:        auth,
		logger:      logger,
		subscribers: make(map[int]func(*model.User)),
	}
}

// Initialize restores an existing session from the backend, if any. It never
// fails the caller: a backend error leaves the store signed out but marks it
// initialized so the app isn't blocked on auth.
func (s *SessionStore) Initialize(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	sess, err := s.auth.Session(ctx)
	if err != nil {
		s.logger.Warn("session restore failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	if sess != nil {
		s.session = sessionFromRemote(sess)
	}
	s.initialized = true
	s.mu.Unlock()

	if sess != nil {
		s.notify()
	}
}

// SignUp registers a new account and, when the backend issues a session
// right away, signs the user in.
func (s *SessionStore) SignUp(ctx context.Context, email, password, name string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	sess, err := s.auth.SignUp(ctx, email, password, name)
	if err != nil {
		return fmt.Errorf("store: signing up: %w", err)
	}
	s.setSession(sess)
	return nil
}

// SignIn authenticates with email and password.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("store: signing in: %w", err)
	}

	s.logger.Info("signed in", slog.String("userID", sess.UserID))
	s.setSession(sess)
	return nil
}

// SignOut ends the session. The local session is cleared even if the
// backend call fails — a sign-out must always work from the user's side.
func (s *SessionStore) SignOut(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.auth.SignOut(ctx); err != nil {
		s.logger.Warn("remote sign-out failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	s.notify()
}

// Refresh exchanges the refresh token for a new session. Used by the item
// store's refetch-after-refresh step and by API clients on token expiry.
func (s *SessionStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	current := s.session
	s.mu.Unlock()

	if current == nil {
		return fmt.Errorf("store: no session to refresh")
	}

	sess, err := s.auth.RefreshSession(ctx, current.RefreshToken)
	if err != nil {
		return fmt.Errorf("store: refreshing session: %w", err)
	}
	s.setSession(sess)
	return nil
}

// CurrentUser returns the resolved user identity, or ok=false when signed
// out. This is the synchronous getter the item store reads at the start of
// every operation.
func (s *SessionStore) CurrentUser() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.User{}, false
	}
	return s.session.User, true
}

// AccessToken returns the current access token, or "" when signed out.
func (s *SessionStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// Initialized reports whether Initialize has completed at least once.
func (s *SessionStore) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Loading reports whether an auth operation is in flight.
func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Subscribe registers fn to be called whenever the session changes: sign-in,
// sign-out and refresh. fn receives the new user, or nil on sign-out. The
// returned function cancels the subscription.
func (s *SessionStore) Subscribe(fn func(*model.User)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) setSession(sess *remote.Session) {
	s.mu.Lock()
	s.session = sessionFromRemote(sess)
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// notify calls each subscriber with the current user. Callbacks run outside
// the lock so a subscriber may call back into the store.
func (s *SessionStore) notify() {
	s.mu.Lock()
	var user *model.User
	if s.session != nil {
		u := s.session.User
		user = &u
	}
	fns := make([]func(*model.User), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

func sessionFromRemote(sess *remote.Session) *model.Session {
	if sess == nil {
		return nil
	}
	return &model.Session{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		User:         model.User{ID: sess.UserID, Name: sess.UserName},
	}
}
