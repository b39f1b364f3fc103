package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/nocode/ports"
)

// MemoryDenylist is an in-memory implementation of the Denylist interface
type MemoryDenylist struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
	now               func() time.Time
}

var _ ports.Denylist = (*MemoryDenylist)(nil)

// NewMemoryDenylist creates a new in-memory denylist
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a token as invalidated until expiry elapses
func (s *MemoryDenylist) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := s.now().Add(expiry)
	if current, exists := s.invalidatedTokens[tokenID]; exists && current.After(expiryTime) {
		return nil
	}
	s.invalidatedTokens[tokenID] = expiryTime

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryDenylist) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// The token itself has expired by now, so the entry is moot
	if s.now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

// Prune drops entries whose expiry has passed and returns how many were removed
func (s *MemoryDenylist) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for tokenID, expiryTime := range s.invalidatedTokens {
		if now.After(expiryTime) {
			delete(s.invalidatedTokens, tokenID)
			removed++
		}
	}
	return removed
}
