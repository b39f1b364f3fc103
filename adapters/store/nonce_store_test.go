package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/nocode/ports"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryNonceStore(t *testing.T) {
	ctx := context.Background()

	t.Run("consume once", func(t *testing.T) {
		s := NewMemoryNonceStore()
		require.NoError(t, s.Add(ctx, "n1", time.Minute))
		require.True(t, s.Contains("n1"))

		ok, err := s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, s.Contains("n1"))
	})

	t.Run("unknown nonce", func(t *testing.T) {
		s := NewMemoryNonceStore()
		ok, err := s.Consume(ctx, "never-issued")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired nonce is absent", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		s := NewMemoryNonceStore()
		s.now = clock.Now

		require.NoError(t, s.Add(ctx, "n1", time.Minute))
		clock.Advance(2 * time.Minute)

		assert.False(t, s.Contains("n1"))
		ok, err := s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		s := NewMemoryNonceStore()
		s.now = clock.Now

		require.NoError(t, s.Add(ctx, "n1", 0))
		clock.Advance(24 * time.Hour)
		assert.Equal(t, 0, s.Prune(clock.Now()))

		ok, err := s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("prune", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		s := NewMemoryNonceStore()
		s.now = clock.Now

		require.NoError(t, s.Add(ctx, "short", time.Minute))
		require.NoError(t, s.Add(ctx, "long", time.Hour))
		clock.Advance(5 * time.Minute)

		assert.Equal(t, 1, s.Prune(clock.Now()))
		assert.True(t, s.Contains("long"))
	})
}

func TestRedisNonceStore(t *testing.T) {
	ctx := context.Background()

	t.Run("consume once", func(t *testing.T) {
		_, client := newTestRedis(t)
		s := NewRedisNonceStore(client)

		require.NoError(t, s.Add(ctx, "n1", time.Minute))

		ok, err := s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired nonce is absent", func(t *testing.T) {
		mr, client := newTestRedis(t)
		s := NewRedisNonceStore(client)

		require.NoError(t, s.Add(ctx, "n1", time.Minute))
		mr.FastForward(2 * time.Minute)

		ok, err := s.Consume(ctx, "n1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("key layout", func(t *testing.T) {
		mr, client := newTestRedis(t)
		s := NewRedisNonceStore(client)

		require.NoError(t, s.Add(ctx, "n1", time.Minute))
		assert.True(t, mr.Exists("nocode:nonce:n1"))
		assert.Equal(t, time.Minute, mr.TTL("nocode:nonce:n1"))
	})

	t.Run("backend failure", func(t *testing.T) {
		mr, client := newTestRedis(t)
		s := NewRedisNonceStore(client)
		mr.Close()

		_, err := s.Consume(ctx, "n1")
		require.Error(t, err)
	})
}

func TestNonceStoreConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)

	stores := map[string]ports.NonceStore{
		"memory": NewMemoryNonceStore(),
		"redis":  NewRedisNonceStore(client),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Add(ctx, "race", time.Minute))

			var (
				wg   sync.WaitGroup
				wins atomic.Int32
			)
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.Consume(ctx, "race")
					if err == nil && ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
		})
	}
}
