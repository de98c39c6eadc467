package store

import (
	"context"
	"sync"

	"github.com/vkazakov/chatline/internal/model/chat"
)

// UserAPI is the slice of the request layer the user store depends on.
type UserAPI interface {
	Me(ctx context.Context) (chat.User, error)
	Logout(ctx context.Context) error
}

// UserStore owns the current user's profile for the lifetime of the
// session.
type UserStore struct {
	api UserAPI

	mu      sync.RWMutex
	current *chat.User
	loading bool
	err     string
	closed  bool
}

// NewUserStore wires a user store to the request layer.
func NewUserStore(api UserAPI) *UserStore {
	return &UserStore{api: api}
}

// Current returns the logged-in user's profile, or nil before the first
// successful Refresh.
func (s *UserStore) Current() *chat.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// Refresh reloads the profile from the server.
func (s *UserStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	user, err := s.api.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = "failed to load user data"
		return err
	}
	s.current = &user
	return nil
}

// Logout destroys the session and forgets the profile. The server call is
// best effort; local state is cleared either way.
func (s *UserStore) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return err
}

// Loading reports whether a profile load is outstanding.
func (s *UserStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last load failure, "" when the last load succeeded.
func (s *UserStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close marks the store torn down; late responses are discarded.
func (s *UserStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
