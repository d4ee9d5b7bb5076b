// Package session issues and resolves the sessions that own filter panels.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrMissingUser     = errors.New("user id is required")
)

// DefaultTTL applies when a store is created without one.
const DefaultTTL = 12 * time.Hour

// Session is an authenticated user context.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Preview   bool      `json:"preview"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store resolves session tokens.
type Store interface {
	Issue(ctx context.Context, userID string) (Session, error)
	Lookup(ctx context.Context, token string) (Session, error)
	Revoke(ctx context.Context, token string) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	preview  map[string]struct{}
	now      func() time.Time
	onRevoke func(Session)
}

// NewMemoryStore creates a store. Users listed in previewUsers get sessions
// flagged for criteria previews.
func NewMemoryStore(ttl time.Duration, previewUsers []string) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	preview := make(map[string]struct{}, len(previewUsers))
	for _, u := range previewUsers {
		if u = strings.TrimSpace(u); u != "" {
			preview[u] = struct{}{}
		}
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		preview:  preview,
		now:      time.Now,
	}
}

// OnRevoke registers a callback run after a session is revoked or found
// expired. It is used to drop per-session state.
func (s *MemoryStore) OnRevoke(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRevoke = fn
}

// Issue creates a session for userID.
func (s *MemoryStore) Issue(_ context.Context, userID string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, ErrMissingUser
	}

	now := s.now()
	_, preview := s.preview[userID]
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     uuid.NewString(),
		Preview:   preview,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Lookup returns the session for token. Expired sessions are removed.
func (s *MemoryStore) Lookup(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		s.remove(token)
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Revoke deletes the session for token.
func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	if !s.remove(token) {
		return ErrSessionNotFound
	}
	return nil
}

// CleanExpired drops every expired session and returns how many were removed.
func (s *MemoryStore) CleanExpired() int {
	now := s.now()
	s.mu.RLock()
	var expired []string
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			expired = append(expired, token)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, token := range expired {
		if s.remove(token) {
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) remove(token string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	hook := s.onRevoke
	s.mu.Unlock()

	if ok && hook != nil {
		hook(sess)
	}
	return ok
}
