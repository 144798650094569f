// Package session is the single source of truth for who is signed in on a
// browser. The user profile lives in client storage; the tokens live in the
// token store. Nothing here talks to the network.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/storage"
	"github.com/tumioparbe/web/internal/tokens"
)

const (
	// UserKey holds the JSON user profile
	UserKey = "tumio_parbe_user_data"
	// SnapshotKey holds the whole persisted session object
	SnapshotKey = "auth-storage"
)

var (
	// ErrIncompleteTokens is returned by Login for a pair missing a half
	ErrIncompleteTokens = errors.New("session: incomplete token pair")
	// ErrNoSession is returned when an operation needs tokens and there are none
	ErrNoSession = errors.New("session: not signed in")
)

// Session is a point-in-time view of the browser's sign-in state
type Session struct {
	User   *model.User
	Tokens *model.TokenPair
}

// IsAuthenticated is true exactly when a token pair is present.
func (s Session) IsAuthenticated() bool { return s.Tokens != nil }

// IsAdmin mirrors the user's admin flag.
func (s Session) IsAdmin() bool { return s.User != nil && s.User.IsAdmin }

type snapshotState struct {
	User            *model.User      `json:"user"`
	Tokens          *model.TokenPair `json:"tokens"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	IsAdmin         bool             `json:"isAdmin"`
}

type snapshot struct {
	State   snapshotState `json:"state"`
	Version int           `json:"version"`
}

// Store mutates the session through Login, UpdateUser, RefreshAccess and Logout.
type Store struct {
	st     storage.Storage
	tokens tokens.Store

	mu   sync.Mutex
	user *model.User
}

// Open rehydrates the session of one browser. Unreadable state is logged
// and treated as signed out.
func Open(ctx context.Context, st storage.Storage, ts tokens.Store) *Store {
	s := &Store{st: st, tokens: ts}

	var user model.User
	err := storage.GetJSON(ctx, st, UserKey, &user)
	switch {
	case err == nil:
		s.user = &user
	case errors.Is(err, storage.ErrNotFound):
		var snap snapshot
		if err := storage.GetJSON(ctx, st, SnapshotKey, &snap); err == nil {
			s.user = snap.State.User
		}
	default:
		logctx.From(ctx).Debug("session_user_load_failed", slog.String("err", err.Error()))
	}

	return s
}

// Tokens exposes the underlying token store.
func (s *Store) Tokens() tokens.Store { return s.tokens }

// Session returns the current user together with the stored token pair.
func (s *Store) Session(ctx context.Context) Session {
	s.mu.Lock()
	user := copyUser(s.user)
	s.mu.Unlock()

	return Session{User: user, Tokens: s.tokens.Load(ctx)}
}

// Login stores a fresh token pair and replaces the user wholesale.
func (s *Store) Login(ctx context.Context, pair model.TokenPair, user model.User) error {
	if !pair.Complete() {
		return ErrIncompleteTokens
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokens.Save(ctx, pair); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := storage.SetJSON(ctx, s.st, UserKey, user); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.user = &user
	return s.persistLocked(ctx)
}

// UpdateUser replaces the stored profile without touching tokens.
func (s *Store) UpdateUser(ctx context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.SetJSON(ctx, s.st, UserKey, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.user = &user
	return s.persistLocked(ctx)
}

// RefreshAccess swaps in a new access token, keeping the refresh token and user.
func (s *Store) RefreshAccess(ctx context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.tokens.Load(ctx)
	if cur == nil {
		return ErrNoSession
	}
	if err := s.tokens.Save(ctx, model.TokenPair{Access: access, Refresh: cur.Refresh}); err != nil {
		return fmt.Errorf("refresh access: %w", err)
	}
	return s.persistLocked(ctx)
}

// Logout clears tokens, the stored profile and the snapshot. Every step is
// attempted even if an earlier one fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	return errors.Join(
		s.tokens.Clear(ctx),
		s.st.Delete(ctx, UserKey),
		s.st.Delete(ctx, SnapshotKey),
	)
}

func (s *Store) persistLocked(ctx context.Context) error {
	pair := s.tokens.Load(ctx)
	sess := Session{User: s.user, Tokens: pair}
	snap := snapshot{State: snapshotState{
		User:            s.user,
		Tokens:          pair,
		IsAuthenticated: sess.IsAuthenticated(),
		IsAdmin:         sess.IsAdmin(),
	}}
	if err := storage.SetJSON(ctx, s.st, SnapshotKey, snap); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
