package keys

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/google/uuid"
)

// Session holds the unlocked field key. Operations borrow the key through
// WithKey; Lock waits for borrowers to return, wipes the key, and every
// later WithKey fails with common.ErrLocked.
type Session struct {
	id string

	mu      sync.RWMutex
	key     []byte
	expires time.Time
	now     func() time.Time
}

func newSession(key []byte, ttl time.Duration, now func() time.Time) *Session {
	s := &Session{id: uuid.NewString(), key: key, now: now}
	if ttl > 0 {
		s.expires = now().Add(ttl)
	}
	return s
}

// ID identifies the session in logs. It reveals nothing about the key.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// ExpiresAt is zero for sessions without a TTL.
func (s *Session) ExpiresAt() time.Time {
	return s.expires
}

// WithKey runs fn with the field key while holding the session's read lock.
// fn must not retain the slice. A nil, locked or expired session yields
// common.ErrLocked without calling fn.
func (s *Session) WithKey(fn func(key []byte) error) error {
	if s == nil {
		return common.ErrLocked
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil || s.expired() {
		return common.ErrLocked
	}
	return fn(s.key)
}

// Locked reports whether the key is gone or the TTL has passed.
func (s *Session) Locked() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key == nil || s.expired()
}

// Lock wipes the key. It blocks until in-flight WithKey calls finish and is
// safe to call more than once.
func (s *Session) Lock() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	common.WipeByteArray(s.key)
	s.key = nil
}

func (s *Session) expired() bool {
	return !s.expires.IsZero() && !s.now().Before(s.expires)
}
