package shipox

import (
	"sync"
	"time"
)

// Token is a snapshot of the upstream bearer token
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be used at now, keeping margin
// in reserve before the assumed expiry
func (t Token) ValidAt(now time.Time, margin time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-margin))
}

// TokenStore holds the current upstream token in process memory.
// Value and expiry are always read and replaced together.
type TokenStore struct {
	mu    sync.RWMutex
	token Token
}

// NewTokenStore creates an empty token store
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Snapshot returns whatever is currently stored, possibly empty or expired
func (s *TokenStore) Snapshot() Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the stored token
func (s *TokenStore) Set(value string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = Token{Value: value, ExpiresAt: expiresAt}
}

// Clear forgets the stored token so the next consumer triggers a refresh
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = Token{}
}

// InvalidateIf clears the store only if it still holds value.
// Returns true when the token was cleared.
func (s *TokenStore) InvalidateIf(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token.Value != value {
		return false
	}
	s.token = Token{}
	return true
}
