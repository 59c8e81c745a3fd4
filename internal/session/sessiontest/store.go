// Package sessiontest provides an in-memory session.Store for tests.
package sessiontest

import (
	"context"
	"sync"
	"time"

	"github.com/delordemm1/matrimony-api/internal/session"
)

// Store is a mutex-guarded in-memory session.Store with the same conditional
// semantics as the Postgres implementation.
type Store struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]session.Session)}
}

func (s *Store) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &sess, nil
}

func (s *Store) Rotate(_ context.Context, id, oldHash, newHash string, expiresAt, rotatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.RevokedAt != nil || sess.RefreshTokenHash != oldHash {
		return session.ErrStale
	}
	sess.RefreshTokenHash = newHash
	sess.ExpiresAt = expiresAt
	sess.RotatedAt = &rotatedAt
	s.sessions[id] = sess
	return nil
}

func (s *Store) Revoke(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok && sess.RevokedAt == nil {
		sess.RevokedAt = &at
		s.sessions[id] = sess
	}
	return nil
}

func (s *Store) RevokeAllForAccount(_ context.Context, accountID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.AccountID == accountID && sess.RevokedAt == nil {
			sess.RevokedAt = &at
			s.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(cutoff) || (sess.RevokedAt != nil && sess.RevokedAt.Before(cutoff)) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Live returns the number of non-revoked sessions held for the account.
func (s *Store) Live(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.AccountID == accountID && sess.RevokedAt == nil {
			n++
		}
	}
	return n
}
