package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

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
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](time.Minute)

	_, found := c.Get(ctx, "a")
	assert.False(t, found)

	c.Set(ctx, "a", 1, 0)
	v, found := c.Get(ctx, "a")
	require.True(t, found)
	assert.Equal(t, 1, v)

	c.Delete(ctx, "a")
	_, found = c.Get(ctx, "a")
	assert.False(t, found)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := New[string, string](300*time.Second, WithClock(clock.Now))

	c.Set(ctx, "market", "0xabc", 0)
	clock.Advance(299 * time.Second)
	_, found := c.Get(ctx, "market")
	assert.True(t, found, "entry should live until its TTL")

	clock.Advance(time.Second)
	_, found = c.Get(ctx, "market")
	assert.False(t, found, "entry should expire at its TTL")
	assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](time.Hour, WithMaxEntries(2))

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)
	_, _ = c.Get(ctx, "a") // b is now least recently used
	c.Set(ctx, "c", 3, 0)

	_, found := c.Get(ctx, "b")
	assert.False(t, found, "least recently used entry should be evicted")
	_, found = c.Get(ctx, "a")
	assert.True(t, found)
	_, found = c.Get(ctx, "c")
	assert.True(t, found)
}

func TestCache_SweepsExpiredBeforeLRU(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := New[string, int](time.Hour, WithMaxEntries(2), WithClock(clock.Now))

	c.Set(ctx, "short", 1, time.Second)
	c.Set(ctx, "long", 2, 0)
	_, _ = c.Get(ctx, "short") // long is now least recently used

	clock.Advance(2 * time.Second)
	c.Set(ctx, "new", 3, 0)

	_, found := c.Get(ctx, "long")
	assert.True(t, found, "expired entry should be evicted instead of the LRU one")
	_, found = c.Get(ctx, "new")
	assert.True(t, found)
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](time.Minute, WithMaxEntries(16))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%32)
				c.Set(ctx, key, i, 0)
				_, _ = c.Get(ctx, key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
