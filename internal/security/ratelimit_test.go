package security

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(ctx, time.Hour)
	store.now = clock.now
	return store, clock
}

func TestLimiterFixedWindow(t *testing.T) {
	store, clock := newTestStore(t)
	limiter := NewLimiter(store, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, _ := limiter.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	// other keys are independent
	ok, _ = limiter.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)

	clock.advance(time.Minute)
	ok, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryStoreSweep(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.Increment(ctx, "a", time.Minute)
	_, _ = store.Increment(ctx, "b", time.Hour)
	assert.Equal(t, 2, store.size())

	clock.advance(2 * time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.size())
}

func TestMemoryStoreConcurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Increment(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	n, err := store.Increment(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), n)
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store unavailable")
}

func TestLimiterFailsOpen(t *testing.T) {
	limiter := NewLimiter(failingStore{}, 1, time.Minute)

	ok, err := limiter.Allow(context.Background(), "k")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	_, err := NewRedisStore(client, "test:").Increment(context.Background(), "k", time.Minute)
	assert.ErrorContains(t, err, "rate limit increment")
}
