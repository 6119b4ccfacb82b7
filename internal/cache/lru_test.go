package cache

import (
	"sync"
	"sync/atomic"
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

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock, *[]string) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.Now
	var evicted []string
	c.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })
	return c, clock, &evicted
}

func TestLRU_GetSet(t *testing.T) {
	c, _, _ := newTestCache(2, time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRU_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c, _, evicted := newTestCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	assert.Equal(t, []string{"b"}, *evicted)
	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestLRU_ExpiryOnGet(t *testing.T) {
	c, clock, evicted := newTestCache(4, time.Minute)

	c.Set("a", 1)
	clock.Advance(2 * time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, *evicted)
}

func TestLRU_GetRefreshesTTL(t *testing.T) {
	c, clock, _ := newTestCache(4, time.Minute)

	c.Set("a", 1)
	clock.Advance(50 * time.Second)
	_, ok := c.Get("a")
	require.True(t, ok)
	clock.Advance(50 * time.Second)

	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLRU_CleanExpired(t *testing.T) {
	c, clock, evicted := newTestCache(4, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(30 * time.Second)
	c.Set("c", 3)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, c.CleanExpired())
	assert.ElementsMatch(t, []string{"a", "b"}, *evicted)
	assert.Equal(t, 1, c.Size())
}

func TestLRU_DeleteAndPurge(t *testing.T) {
	c, _, evicted := newTestCache(4, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Delete("a")
	c.Delete("a")
	assert.Equal(t, []string{"a"}, *evicted)

	c.Purge()
	assert.Zero(t, c.Size())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, *evicted)
}

func TestLRU_EvictCallbackMayReenter(t *testing.T) {
	c := NewLRUCache[int](1, time.Minute)
	c.OnEvict(func(string, int) { _ = c.Size() })

	done := make(chan struct{})
	go func() {
		c.Set("a", 1)
		c.Set("b", 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction callback deadlocked")
	}
}

type countingCleaner struct{ n int32 }

func (c *countingCleaner) CleanExpired() int {
	atomic.AddInt32(&c.n, 1)
	return 1
}

func TestManager_Sweep(t *testing.T) {
	var reported int
	m := NewManager(func(removed int) { reported += removed })
	a, b := &countingCleaner{}, &countingCleaner{}
	m.Register(a)
	m.Register(b)

	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 2, reported)
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(nil)
	cl := &countingCleaner{}
	m.Register(cl)

	m.StartCleanup(5 * time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&cl.n) > 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}

type slowCleaner struct {
	started chan struct{}
	once    sync.Once
}

func (c *slowCleaner) CleanExpired() int {
	c.once.Do(func() { close(c.started) })
	time.Sleep(50 * time.Millisecond)
	return 0
}

func TestManager_StopDuringSweep(t *testing.T) {
	m := NewManager(nil)
	cl := &slowCleaner{started: make(chan struct{})}
	m.Register(cl)
	m.StartCleanup(time.Millisecond)

	select {
	case <-cl.started:
	case <-time.After(time.Second):
		t.Fatal("sweep never started")
	}

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked while a sweep was running")
	}
}

func TestManager_RestartAfterStop(t *testing.T) {
	m := NewManager(nil)
	cl := &countingCleaner{}
	m.Register(cl)

	m.StartCleanup(time.Millisecond)
	m.Stop()
	before := atomic.LoadInt32(&cl.n)

	m.StartCleanup(time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&cl.n) > before }, time.Second, time.Millisecond)
	m.Stop()
}
