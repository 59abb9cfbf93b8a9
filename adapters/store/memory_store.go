package store

import (
	"context"
	"sync"
	"time"

	"github.com/medilocker/medigate/ports"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// MemoryNonceStore is an in-memory implementation of the NonceStore
// interface for single-instance deployments and tests.
type MemoryNonceStore struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewMemoryNonceStore creates a new in-memory nonce store.
func NewMemoryNonceStore() ports.NonceStore {
	return &MemoryNonceStore{
		entries: make(map[string]entry),
	}
}

// Put stores a nonce for the key, replacing any prior entry.
func (s *MemoryNonceStore) Put(ctx context.Context, key, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	s.entries[key] = entry{value: nonce, expiresAt: expiresAt}

	// Reap the entry once the TTL lapses.
	go func() {
		time.Sleep(ttl)

		s.mu.Lock()
		defer s.mu.Unlock()

		// Only delete if the entry wasn't replaced with a later expiry.
		if e, ok := s.entries[key]; ok && !e.expiresAt.After(expiresAt) {
			delete(s.entries, key)
		}
	}()

	return nil
}

// Get returns the stored nonce without consuming it.
func (s *MemoryNonceStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.expired() {
		return "", false, nil
	}
	return e.value, true, nil
}

// Take returns the stored nonce and deletes the entry unconditionally.
func (s *MemoryNonceStore) Take(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || e.expired() {
		return "", false, nil
	}
	return e.value, true, nil
}

// MemoryTokenStore is an in-memory implementation of the TokenStore
// interface.
type MemoryTokenStore struct {
	redeemed map[string]time.Time
	mu       sync.RWMutex
}

// NewMemoryTokenStore creates a new in-memory token store.
func NewMemoryTokenStore() ports.TokenStore {
	return &MemoryTokenStore{
		redeemed: make(map[string]time.Time),
	}
}

// MarkRedeemed records a grant ID as redeemed.
func (s *MemoryTokenStore) MarkRedeemed(ctx context.Context, grantID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	s.redeemed[grantID] = expiresAt

	// Reap the record once the TTL lapses.
	go func() {
		time.Sleep(ttl)

		s.mu.Lock()
		defer s.mu.Unlock()

		if storedExpiry, ok := s.redeemed[grantID]; ok && !storedExpiry.After(expiresAt) {
			delete(s.redeemed, grantID)
		}
	}()

	return nil
}

// IsRedeemed checks whether a grant ID has been redeemed.
func (s *MemoryTokenStore) IsRedeemed(ctx context.Context, grantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.redeemed[grantID]
	if !ok || time.Now().After(expiresAt) {
		return false, nil
	}
	return true, nil
}
