// ABOUTME: Tests for the speech cache and render pool
// ABOUTME: Covers insert-once rendering, non-blocking lookups, failures and waits
package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/resonance-audio/resonance/pkg/audio"
)

const testRate = 44100

func monoBuffer(frames, rate int) audio.Buffer {
	samples := make([]int32, frames)
	for i := range samples {
		samples[i] = audio.Max24Bit / 2
	}
	return audio.Buffer{Samples: samples, Format: audio.Format{SampleRate: rate, Channels: 1, BitDepth: 24}}
}

func startPool(t *testing.T, r Renderer, cfg PoolConfig) (*Pool, *Cache) {
	t.Helper()

	cache, err := NewCache(16)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	cfg.SampleRate = testRate
	pool := NewPool(r, cache, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = pool.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return pool, cache
}

func TestPool_InsertOncePerKey(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	r := RendererFunc(func(ctx context.Context, voice, text string) (audio.Buffer, error) {
		calls.Add(1)
		<-release
		return monoBuffer(1000, testRate), nil
	})
	pool, cache := startPool(t, r, PoolConfig{Workers: 4})

	key := Key{Voice: "en", Text: "I am calm"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Request(key)
		}()
	}
	wg.Wait()

	if _, status := cache.Lookup(key); status != Pending {
		t.Fatalf("status = %v, want pending", status)
	}

	close(release)

	clip, status := cache.Wait(context.Background(), key, time.Second)
	if status != Ready || clip == nil {
		t.Fatalf("Wait() = %v, want ready", status)
	}

	// A later request for a ready key is a no-op
	pool.Request(key)
	time.Sleep(20 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("renderer called %d times, want 1", n)
	}
}

func TestCache_LookupNeverBlocks(t *testing.T) {
	r := RendererFunc(func(ctx context.Context, voice, text string) (audio.Buffer, error) {
		<-ctx.Done()
		return audio.Buffer{}, ctx.Err()
	})
	pool, cache := startPool(t, r, PoolConfig{Workers: 1, Timeout: time.Second})

	key := Key{Voice: "en", Text: "slow"}
	pool.Request(key)

	start := time.Now()
	for i := 0; i < 1000; i++ {
		cache.Lookup(key)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("1000 lookups took %v", elapsed)
	}
}

func TestPool_FailureThenRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	r := RendererFunc(func(ctx context.Context, voice, text string) (audio.Buffer, error) {
		if fail.Load() {
			return audio.Buffer{}, errors.New("engine offline")
		}
		return monoBuffer(500, 22050), nil
	})
	pool, cache := startPool(t, r, PoolConfig{Workers: 1})

	key := Key{Voice: "en", Text: "retry me"}
	pool.Request(key)

	if _, status := cache.Wait(context.Background(), key, time.Second); status != Failed {
		t.Fatalf("status = %v, want failed", status)
	}
	if cache.Err(key) == nil {
		t.Error("expected recorded error")
	}

	fail.Store(false)
	pool.Request(key)

	clip, status := cache.Wait(context.Background(), key, time.Second)
	if status != Ready {
		t.Fatalf("status after retry = %v, want ready", status)
	}
	// 500 frames at 22.05kHz is 1000 frames at 44.1kHz
	if clip.Frames != 1000 {
		t.Errorf("clip frames = %d, want 1000", clip.Frames)
	}
}

func TestPool_RenderTimeout(t *testing.T) {
	r := RendererFunc(func(ctx context.Context, voice, text string) (audio.Buffer, error) {
		<-ctx.Done()
		return audio.Buffer{}, ctx.Err()
	})
	pool, cache := startPool(t, r, PoolConfig{Workers: 1, Timeout: 20 * time.Millisecond})

	key := Key{Voice: "en", Text: "never"}
	pool.Request(key)

	if _, status := cache.Wait(context.Background(), key, time.Second); status != Failed {
		t.Fatalf("status = %v, want failed", status)
	}
	if !errors.Is(cache.Err(key), context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", cache.Err(key))
	}
}

func TestPool_FullQueueRejects(t *testing.T) {
	cache, err := NewCache(4)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	// No workers running, so the queue fills
	pool := NewPool(NewToneRenderer(), cache, PoolConfig{SampleRate: testRate, QueueSize: 1})

	if !pool.Request(Key{Voice: "a", Text: "one"}) {
		t.Fatal("first request should be queued")
	}
	if pool.Request(Key{Voice: "a", Text: "two"}) {
		t.Fatal("second request should be rejected")
	}
	if _, status := cache.Lookup(Key{Voice: "a", Text: "two"}); status != Missing {
		t.Errorf("rejected key status = %v, want missing", status)
	}
}

func TestCache_WaitTimesOut(t *testing.T) {
	cache, err := NewCache(4)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	key := Key{Voice: "en", Text: "x"}

	if _, status := cache.Wait(context.Background(), key, time.Millisecond); status != Missing {
		t.Errorf("unrequested key status = %v, want missing", status)
	}

	cache.claim(key)
	start := time.Now()
	if _, status := cache.Wait(context.Background(), key, 30*time.Millisecond); status != Pending {
		t.Errorf("status = %v, want pending", status)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Error("Wait returned before timeout")
	}
}
