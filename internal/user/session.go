package user

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mensstore-be/internal/auth"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrRefreshFailed wraps a provider rejection so callers can tell "no
	// session" apart from "session could not be renewed".
	ErrRefreshFailed = errors.New("session refresh failed")
)

// Session tracks the current sign-in state and exposes it as a live boolean
// stream. All methods are safe for concurrent use.
type Session struct {
	provider auth.Provider

	mu       sync.Mutex
	userID   string
	token    string
	loggedIn bool
	nextSub  int
	subs     map[int]chan bool
}

func NewSession(provider auth.Provider) *Session {
	return &Session{
		provider: provider,
		subs:     map[int]chan bool{},
	}
}

// SetCredentials records a successful sign-in.
func (s *Session) SetCredentials(userID, token string) {
	s.mu.Lock()
	s.userID = userID
	s.token = token
	changed := !s.loggedIn
	s.loggedIn = true
	s.broadcastLocked(changed)
	s.mu.Unlock()
}

// Clear drops the session on sign-out or account deletion.
func (s *Session) Clear() {
	s.mu.Lock()
	s.userID = ""
	s.token = ""
	changed := s.loggedIn
	s.loggedIn = false
	s.broadcastLocked(changed)
	s.mu.Unlock()
}

// Token returns the current session token, or ErrNotLoggedIn.
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return "", ErrNotLoggedIn
	}
	return s.token, nil
}

// UserID returns the signed-in user's id, or ErrNotLoggedIn.
func (s *Session) UserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return "", ErrNotLoggedIn
	}
	return s.userID, nil
}

// Refresh exchanges the current token for a fresh one. Having no session at
// all and the provider rejecting the exchange are distinct failures.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	loggedIn := s.loggedIn
	s.mu.Unlock()

	if !loggedIn {
		return ErrNotLoggedIn
	}

	fresh, err := s.provider.Refresh(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	s.mu.Lock()
	if s.loggedIn {
		s.token = fresh
	}
	s.mu.Unlock()
	return nil
}

// LoggedIn delivers the current login state immediately and every change
// afterwards, until ctx is cancelled.
func (s *Session) LoggedIn(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	s.mu.Lock()
	ch <- s.loggedIn
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (s *Session) broadcastLocked(changed bool) {
	if !changed {
		return
	}
	for _, ch := range s.subs {
		// Coalesce: a subscriber that has not consumed the previous state
		// only needs the latest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.loggedIn:
		default:
		}
	}
}
