package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidSession = errors.New("invalid session")

type session struct {
	userID    int
	expiresAt time.Time
}

// SessionStore issues and validates opaque bearer tokens. Sessions live in
// memory; a restart logs everyone out, which clients recover from by logging
// in again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose tokens expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a fresh token bound to the user.
func (s *SessionStore) Create(userID int) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = session{userID: userID, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

// Validate resolves a token to its user id. Expired tokens are pruned and
// reported as invalid.
func (s *SessionStore) Validate(token string) (int, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return 0, ErrInvalidSession
	}
	if s.now().After(sess.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return 0, ErrInvalidSession
	}
	return sess.userID, nil
}

// Revoke invalidates a token. Unknown tokens are a no-op.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
