package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/nocode/ports"
	"github.com/redis/go-redis/v9"
)

// RedisDenylist is a Redis implementation of the Denylist interface
type RedisDenylist struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.Denylist = (*RedisDenylist)(nil)

// NewRedisDenylist creates a new Redis denylist
func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{
		client: client,
		prefix: "nocode:revoked:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisDenylist) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	// Set key with expiration
	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisDenylist) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	// Check if key exists
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}
