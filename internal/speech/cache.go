// ABOUTME: Speech render cache with insert-once-per-key semantics
// ABOUTME: Readers poll without blocking; only render workers write
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds retained clips; narration of long books evicts the oldest paragraphs
const DefaultCacheSize = 512

// ErrRenderFailed is returned by Wait when the render for a key failed
var ErrRenderFailed = errors.New("speech render failed")

// Cache holds rendered clips keyed by voice and text
type Cache struct {
	mu      sync.Mutex
	ready   *lru.Cache[Key, *Clip]
	pending map[Key]chan struct{}
	failed  map[Key]error
}

// NewCache creates a cache retaining at most size clips
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	ready, err := lru.New[Key, *Clip](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create clip cache: %w", err)
	}
	return &Cache{
		ready:   ready,
		pending: make(map[Key]chan struct{}),
		failed:  make(map[Key]error),
	}, nil
}

// Lookup returns the clip for key when ready. It never blocks on a render.
func (c *Cache) Lookup(key Key) (*Clip, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key)
}

func (c *Cache) lookupLocked(key Key) (*Clip, Status) {
	if clip, ok := c.ready.Get(key); ok {
		return clip, Ready
	}
	if _, ok := c.pending[key]; ok {
		return nil, Pending
	}
	if _, ok := c.failed[key]; ok {
		return nil, Failed
	}
	return nil, Missing
}

// claim marks key pending and reports whether the caller should render it.
// Ready and pending keys are never claimed twice; failed keys may be retried.
func (c *Cache) claim(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, status := c.lookupLocked(key); status == Ready || status == Pending {
		return false
	}
	delete(c.failed, key)
	c.pending[key] = make(chan struct{})
	return true
}

// release drops a claim that was never handed to a worker
func (c *Cache) release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if done, ok := c.pending[key]; ok {
		delete(c.pending, key)
		close(done)
	}
}

// store publishes a finished clip and wakes waiters
func (c *Cache) store(clip *Clip) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ready.Add(clip.Key, clip)
	if done, ok := c.pending[clip.Key]; ok {
		delete(c.pending, clip.Key)
		close(done)
	}
}

// fail records a render failure and wakes waiters
func (c *Cache) fail(key Key, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed[key] = err
	if done, ok := c.pending[key]; ok {
		delete(c.pending, key)
		close(done)
	}
}

// Wait blocks until key is ready, fails, or timeout elapses. A key that was
// never requested returns immediately with Missing.
func (c *Cache) Wait(ctx context.Context, key Key, timeout time.Duration) (*Clip, Status) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		clip, status := c.lookupLocked(key)
		done := c.pending[key]
		c.mu.Unlock()

		if status != Pending {
			return clip, status
		}

		select {
		case <-done:
		case <-timer.C:
			return nil, Pending
		case <-ctx.Done():
			return nil, Pending
		}
	}
}

// Err returns the recorded failure for key, if any
func (c *Cache) Err(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed[key]
}

// Len returns how many clips are ready
func (c *Cache) Len() int {
	return c.ready.Len()
}

// Purge discards every clip and failure record
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready.Purge()
	c.failed = make(map[Key]error)
}
