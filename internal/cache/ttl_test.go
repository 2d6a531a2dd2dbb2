package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
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

func TestTTL_SetGetDelete(t *testing.T) {
	c := New[string, string](time.Minute, 0)
	defer c.Close()

	_, ok := c.Get("a@b.com")
	assert.False(t, ok, "missing key must be absent")

	c.Set("a@b.com", "Ab12Cd")
	v, ok := c.Get("a@b.com")
	require.True(t, ok)
	assert.Equal(t, "Ab12Cd", v)

	c.Set("a@b.com", "Zz99Yy")
	v, _ = c.Get("a@b.com")
	assert.Equal(t, "Zz99Yy", v, "last write wins")

	c.Delete("a@b.com")
	_, ok = c.Get("a@b.com")
	assert.False(t, ok)

	c.Delete("never-set")
}

func TestTTL_ExpiresRegardlessOfLookups(t *testing.T) {
	clock := newFakeClock()
	c := New[string, string](180*time.Second, 0, WithClock(clock.Now))
	defer c.Close()

	c.Set("a@b.com", "code")

	clock.Advance(179 * time.Second)
	_, ok := c.Get("a@b.com")
	assert.True(t, ok, "entry must be live before the ttl elapses")

	clock.Advance(time.Second)
	_, ok = c.Get("a@b.com")
	assert.False(t, ok, "entry must expire at the ttl even after lookups")
	assert.Equal(t, 0, c.Len(), "expired entry is evicted lazily on lookup")
}

func TestTTL_SetWithTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](time.Hour, 0, WithClock(clock.Now))
	defer c.Close()

	c.SetWithTTL("short", 1, time.Second)
	c.Set("long", 2)

	clock.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_CompareAndDelete(t *testing.T) {
	clock := newFakeClock()
	c := New[string, string](time.Minute, 0, WithClock(clock.Now))
	defer c.Close()

	c.Set("k", "right")

	assert.False(t, c.CompareAndDelete("k", func(v string) bool { return v == "wrong" }))
	_, ok := c.Get("k")
	assert.True(t, ok, "mismatch must keep the entry")

	assert.True(t, c.CompareAndDelete("k", func(v string) bool { return v == "right" }))
	assert.False(t, c.CompareAndDelete("k", func(v string) bool { return v == "right" }), "entry is single use")

	c.Set("k", "right")
	clock.Advance(time.Minute)
	assert.False(t, c.CompareAndDelete("k", func(string) bool { return true }), "expired entry cannot be consumed")
}

func TestTTL_CompareAndDeleteConcurrent(t *testing.T) {
	c := New[string, string](time.Minute, 0)
	defer c.Close()
	c.Set("k", "v")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.CompareAndDelete("k", func(v string) bool { return v == "v" }) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one concurrent consumer must succeed")
}

func TestTTL_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := New[string, string](time.Minute, 0, WithClock(clock.Now))
	defer c.Close()

	c.Set("old", "1")
	clock.Advance(30 * time.Second)
	c.Set("new", "2")
	clock.Advance(31 * time.Second)

	c.Sweep()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestTTL_BackgroundSweep(t *testing.T) {
	c := New[string, string](10*time.Millisecond, 5*time.Millisecond)
	defer c.Close()

	c.Set("k", "v")
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTTL_CloseIsIdempotent(t *testing.T) {
	c := New[string, string](time.Minute, time.Millisecond)
	c.Close()
	c.Close()

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.True(t, ok, "cache remains usable after Close")
}
