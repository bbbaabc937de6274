package replay

import (
	"context"
	"sync"
	"time"

	"fairgate/internal/platform/clock"
)

// MemoryStore is a process-local claim store. It protects a single instance
// only; multi-instance deployments must use a shared backend.
type MemoryStore struct {
	clk clock.Clock

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryStore builds a store reading time from clk.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clk:     clk,
		entries: make(map[string]time.Time),
	}
}

// Claim reserves key for ttl. Expired entries are swept lazily on each call.
func (s *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, expires := range s.entries {
		if !expires.After(now) {
			delete(s.entries, k)
		}
	}

	if _, held := s.entries[key]; held {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}
