// ABOUTME: Background render worker pool feeding the speech cache
// ABOUTME: Bounded request queue; the real-time path only ever does a non-blocking send
package speech

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultWorkers       = 2
	DefaultRenderTimeout = 30 * time.Second
	defaultQueueSize     = 64
)

// Observer receives render outcomes, e.g. for metrics
type Observer interface {
	RenderFinished(key Key, latency time.Duration, err error)
}

// PoolConfig configures a render pool
type PoolConfig struct {
	SampleRate int
	Workers    int
	Timeout    time.Duration
	QueueSize  int
	Observer   Observer
}

// Pool renders requested keys in the background and stores them in a Cache
type Pool struct {
	renderer Renderer
	cache    *Cache
	cfg      PoolConfig
	requests chan Key

	mu      sync.Mutex
	running bool
}

// NewPool creates a render pool
func NewPool(renderer Renderer, cache *Cache, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRenderTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Pool{
		renderer: renderer,
		cache:    cache,
		cfg:      cfg,
		requests: make(chan Key, cfg.QueueSize),
	}
}

// Cache returns the cache the pool writes to
func (p *Pool) Cache() *Cache {
	return p.cache
}

// Lookup polls the cache without blocking
func (p *Pool) Lookup(key Key) (*Clip, Status) {
	return p.cache.Lookup(key)
}

// Request asks for key to be rendered. It never blocks: a key already ready or
// pending is a no-op, and a full queue returns false so the caller can retry later.
func (p *Pool) Request(key Key) bool {
	if !p.cache.claim(key) {
		return true
	}
	select {
	case p.requests <- key:
		return true
	default:
		p.cache.release(key)
		return false
	}
}

// Run starts the workers and blocks until ctx is cancelled
func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("render pool already running")
	}
	p.running = true
	p.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-p.requests:
			p.render(ctx, id, key)
		}
	}
}

func (p *Pool) render(parent context.Context, worker int, key Key) {
	ctx, span := otel.Tracer("resonance/speech").Start(parent, "speech.render")
	span.SetAttributes(
		attribute.String("voice", key.Voice),
		attribute.Int("text.length", len(key.Text)),
		attribute.Int("worker", worker),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	buf, err := p.renderer.Render(ctx, key.Voice, key.Text)
	if err == nil && buf.Frames() == 0 {
		err = fmt.Errorf("renderer returned no audio")
	}
	latency := time.Since(start)

	if err != nil {
		err = fmt.Errorf("render %q (%s): %w", truncate(key.Text, 40), key.Voice, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("Speech render failed after %v: %v", latency.Round(time.Millisecond), err)
		p.cache.fail(key, err)
	} else {
		clip := NewClip(key, buf, p.cfg.SampleRate)
		span.SetAttributes(attribute.Float64("clip.seconds", clip.Duration.Seconds()))
		p.cache.store(clip)
	}

	if p.cfg.Observer != nil {
		p.cfg.Observer.RenderFinished(key, latency, err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
