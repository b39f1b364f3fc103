package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/nocode/ports"
	"github.com/redis/go-redis/v9"
)

// MemoryNonceStore keeps unconsumed nonces in process memory.
// Suitable for a single instance; use RedisNonceStore when scaling out.
type MemoryNonceStore struct {
	nonces map[string]time.Time // zero time means no expiry
	mu     sync.Mutex
	now    func() time.Time
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)

// NewMemoryNonceStore creates an empty in-memory nonce store
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		nonces: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Add registers a nonce
func (s *MemoryNonceStore) Add(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.nonces[nonce] = expiresAt

	return nil
}

// Consume removes the nonce under the store lock so membership test and
// removal happen as one step
func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(s.nonces, nonce)

	if !expiresAt.IsZero() && s.now().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// Contains reports whether nonce is live without consuming it
func (s *MemoryNonceStore) Contains(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.nonces[nonce]
	return ok && (expiresAt.IsZero() || !s.now().After(expiresAt))
}

// Prune drops expired nonces and returns how many were removed
func (s *MemoryNonceStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for nonce, expiresAt := range s.nonces {
		if !expiresAt.IsZero() && now.After(expiresAt) {
			delete(s.nonces, nonce)
			removed++
		}
	}
	return removed
}

// RedisNonceStore keeps nonces as expiring Redis keys shared by all instances
type RedisNonceStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)

// NewRedisNonceStore creates a Redis-backed nonce store
func NewRedisNonceStore(client redis.UniversalClient) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "nocode:nonce:",
	}
}

// Add stores the nonce with its expiry
func (s *RedisNonceStore) Add(ctx context.Context, nonce string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+nonce, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

// Consume deletes the key; DEL reports 1 to exactly one caller
func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	removed, err := s.client.Del(ctx, s.prefix+nonce).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return removed == 1, nil
}
