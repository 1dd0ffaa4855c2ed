package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"valuta-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache() (*MemoryCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(logger.Nop())
	c.now = clock.Now
	return c, clock
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()

	_, found := c.Get(ctx, "latest:USD")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "latest:USD", "snapshot", time.Hour))

	v, found := c.Get(ctx, "latest:USD")
	assert.True(t, found)
	assert.Equal(t, "snapshot", v)

	clock.Advance(59 * time.Minute)
	_, found = c.Get(ctx, "latest:USD")
	assert.True(t, found)

	clock.Advance(time.Minute)
	_, found = c.Get(ctx, "latest:USD")
	assert.False(t, found, "entry must expire once its TTL has elapsed")
}

func TestMemoryCache_DifferentTTLs(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()

	require.NoError(t, c.Set(ctx, "latest:USD", 1, time.Hour))
	require.NoError(t, c.Set(ctx, "historical:USD:2020-01-01:2020-01-05", 2, 24*time.Hour))

	clock.Advance(2 * time.Hour)

	_, found := c.Get(ctx, "latest:USD")
	assert.False(t, found)
	_, found = c.Get(ctx, "historical:USD:2020-01-01:2020-01-05")
	assert.True(t, found)
}

func TestMemoryCache_NonPositiveTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	require.NoError(t, c.Set(ctx, "k", 1, 0))
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryCache_ClearExpired(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()

	require.NoError(t, c.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "long", 2, time.Hour))

	clock.Advance(2 * time.Minute)
	require.NoError(t, c.ClearExpired(ctx))

	assert.Equal(t, 1, c.Len())
	_, found := c.Get(ctx, "long")
	assert.True(t, found)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Set(ctx, key, i, time.Hour)
			c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
