package service

import (
	"context"
	"sync"
	"time"
)

// PendingAuth marks a login whose password check succeeded while the second
// factor is still outstanding. It is keyed by a one-time correlation id and
// lives in a dedicated store, never as mutable flags on the user record, so
// concurrent logins from two places cannot race on shared state.
type PendingAuth struct {
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PendingAuthStore interface {
	Create(ctx context.Context, id string, pa PendingAuth, ttl time.Duration) error
	Get(ctx context.Context, id string) (PendingAuth, bool, error)
	// Delete consumes the entry; completion of the MFA flow deletes exactly
	// once, a failed code attempt leaves the entry untouched.
	Delete(ctx context.Context, id string) error
}

type memoryPendingEntry struct {
	pa        PendingAuth
	expiresAt time.Time
}

type MemoryPendingAuthStore struct {
	mu      sync.Mutex
	entries map[string]memoryPendingEntry
	now     func() time.Time
}

func NewMemoryPendingAuthStore() *MemoryPendingAuthStore {
	return &MemoryPendingAuthStore{
		entries: make(map[string]memoryPendingEntry),
		now:     time.Now,
	}
}

func (s *MemoryPendingAuthStore) WithClock(now func() time.Time) *MemoryPendingAuthStore {
	s.now = now
	return s
}

func (s *MemoryPendingAuthStore) Create(_ context.Context, id string, pa PendingAuth, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryPendingEntry{pa: pa, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryPendingAuthStore) Get(_ context.Context, id string) (PendingAuth, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return PendingAuth{}, false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return PendingAuth{}, false, nil
	}
	return e.pa, true, nil
}

func (s *MemoryPendingAuthStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
