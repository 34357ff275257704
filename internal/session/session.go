// ABOUTME: Session controller wiring mixer, scheduler, render pool and output sink
// ABOUTME: One real-time producer plus background render workers under an errgroup
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/sink"
	"github.com/resonance-audio/resonance/internal/speech"
	"github.com/resonance-audio/resonance/pkg/audio/output"
)

// cueBacklog bounds cue notifications waiting for the watcher
const cueBacklog = 64

// Tap receives every rendered frame. Publish runs on the real-time path and must not block.
type Tap interface {
	Publish(frame []float32)
}

// Hooks receive lifecycle notifications off the real-time path
type Hooks interface {
	Started(st Status)
	Cue(st Status, cue affirm.Cue)
	Stopped(st Status, err error)
}

// Deps are the collaborators a session needs
type Deps struct {
	Output   output.Output   // live mode device
	Renderer speech.Renderer // required when rounds are configured
	Observer speech.Observer
	Tap      Tap
	Hooks    []Hooks
}

// Session is one run of the engine
type Session struct {
	id    string
	cfg   Config
	deps  Deps
	mixer *mixer.Mixer
	sched *affirm.Scheduler
	cache *speech.Cache
	pool  *speech.Pool
	sink  sink.Sink

	cues    chan affirm.Cue
	dropped atomic.Int64
	misses  atomic.Int64

	running    atomic.Bool
	cancelled  atomic.Bool
	cancelOnce sync.Once
	runCtx     context.Context

	mu      sync.Mutex
	started time.Time
	ended   time.Time
	outcome Outcome
}

// New validates cfg and assembles a session
func New(cfg Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Rounds) > 0 && deps.Renderer == nil {
		return nil, &ConfigurationError{Field: "tts", Err: fmt.Errorf("affirmations need a speech renderer")}
	}

	s := &Session{
		id:      uuid.New().String(),
		cfg:     cfg,
		deps:    deps,
		cues:    make(chan affirm.Cue, cueBacklog),
		outcome: OutcomePending,
	}

	cache, err := speech.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, &ConfigurationError{Field: "cache_size", Err: err}
	}
	s.cache = cache

	var clips affirm.Clips = idleClips{}
	if deps.Renderer != nil {
		s.pool = speech.NewPool(deps.Renderer, cache, speech.PoolConfig{
			SampleRate: cfg.SampleRate,
			Workers:    cfg.Workers,
			Timeout:    cfg.RenderTimeout,
			Observer:   deps.Observer,
		})
		clips = s.pool
	}

	s.sched, err = affirm.NewScheduler(affirm.Config{
		Rounds:     cfg.Rounds,
		Exhaust:    cfg.Exhaust,
		StartCycle: cfg.StartCycle,
		Lookahead:  cfg.Lookahead,
		MaxQueued:  cfg.MaxQueued,
		OnCue:      s.onCue,
	}, pacer.NewBreath(cfg.Breath, cfg.SampleRate), clips)
	if err != nil {
		return nil, &ConfigurationError{Field: "rounds", Err: err}
	}

	s.mixer, err = mixer.New(cfg.mixerConfig(), s.sched)
	if err != nil {
		return nil, &ConfigurationError{Field: "mix", Err: err}
	}

	switch cfg.Mode {
	case ModeLive:
		if deps.Output == nil {
			return nil, &ConfigurationError{Field: "output", Err: fmt.Errorf("live mode needs an output device")}
		}
		s.sink = sink.NewLive(deps.Output, cfg.SampleRate, cfg.FrameSize)
	case ModeFile:
		fs, err := sink.NewFile(cfg.OutPath, cfg.SampleRate, cfg.BitDepth, cfg.FrameSize)
		if err != nil {
			return nil, &ConfigurationError{Field: "out", Err: err}
		}
		s.sink = fs
	}

	return s, nil
}

// ID returns the session's unique identifier
func (s *Session) ID() string {
	return s.id
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return s.cfg
}

// Run plays the session to completion. Cancellation through Cancel fades out
// first; cancelling ctx stops at the next frame boundary. Only configuration,
// device and encode errors are returned.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("session %s already started", s.short())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.runCtx = ctx

	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	log.Printf("Session %s starting: preset=%s mode=%s rate=%d duration=%v",
		s.short(), s.cfg.Preset, s.cfg.Mode, s.cfg.SampleRate, s.cfg.Duration)
	if keys := s.sched.Prime(); len(keys) > 0 {
		log.Printf("Prefetching %d utterances", len(keys))
	}
	s.notify(func(h Hooks, st Status) { h.Started(st) })

	g, gctx := errgroup.WithContext(ctx)
	if s.pool != nil {
		g.Go(func() error {
			return s.pool.Run(gctx)
		})
	}
	g.Go(func() error {
		s.watchCues(gctx)
		return nil
	})
	g.Go(func() error {
		// Workers and the watcher stop once the producer is done
		defer cancel()
		return s.produce(gctx)
	})

	err := g.Wait()
	s.finish(err)
	return err
}

func (s *Session) produce(ctx context.Context) error {
	err := s.sink.Run(ctx, s)
	if err == nil {
		return nil
	}
	if s.cfg.Mode == ModeFile {
		return &EncodeError{Path: s.cfg.OutPath, Err: err}
	}
	return &DeviceError{Err: err}
}

// Render implements sink.Source. In file mode it first waits, bounded by the
// render timeout, for a clip due inside this frame.
func (s *Session) Render(buf mixer.Buffer) int {
	if s.cfg.Mode == ModeFile && s.pool != nil {
		if key, ok := s.sched.Due(s.mixer.Position(), buf.Frames()); ok {
			s.pool.Request(key)
			s.cache.Wait(s.runCtx, key, s.renderTimeout())
		}
	}

	n := s.mixer.Render(buf)
	if n > 0 && s.deps.Tap != nil {
		s.deps.Tap.Publish(buf[:n*2])
	}
	return n
}

func (s *Session) renderTimeout() time.Duration {
	if s.cfg.RenderTimeout > 0 {
		return s.cfg.RenderTimeout
	}
	return speech.DefaultRenderTimeout
}

// Cancel requests a graceful stop: the mix fades out and the sink finishes
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		s.cancelled.Store(true)
		s.mixer.BeginFadeOut()
		log.Printf("Session %s cancelled, fading out", s.short())
	})
}

// onCue runs on the real-time path
func (s *Session) onCue(c affirm.Cue) {
	select {
	case s.cues <- c:
	default:
		s.dropped.Add(1)
	}
}

func (s *Session) watchCues(ctx context.Context) {
	for {
		select {
		case c := <-s.cues:
			s.handleCue(c)
		case <-ctx.Done():
			for {
				select {
				case c := <-s.cues:
					s.handleCue(c)
				default:
					return
				}
			}
		}
	}
}

func (s *Session) handleCue(c affirm.Cue) {
	key := speech.Key{Voice: c.Utterance.Voice, Text: c.Utterance.Text}
	at := time.Duration(c.At) * time.Second / time.Duration(s.cfg.SampleRate)

	switch c.Outcome {
	case affirm.CueQueued:
		log.Printf("Cue %d at %v: %s", c.Ordinal+1, at, truncate(c.Utterance.Text, 60))
	case affirm.CueMissed:
		s.misses.Add(1)
		err := &RenderTimeout{Key: key, Ordinal: c.Ordinal + 1, Status: c.Status, Err: s.cache.Err(key)}
		log.Printf("Cue %d at %v skipped: %v", c.Ordinal+1, at, err)
	case affirm.CueDeferred:
		log.Printf("Cue at %v deferred, speech still playing", at)
	}

	s.notify(func(h Hooks, st Status) { h.Cue(st, c) })
}

func (s *Session) finish(err error) {
	outcome := OutcomeCompleted
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case s.cancelled.Load() || !s.mixer.Done():
		outcome = OutcomeCancelled
	}

	s.mu.Lock()
	s.ended = time.Now()
	s.outcome = outcome
	s.mu.Unlock()

	st := s.Status()
	if err != nil {
		log.Printf("Session %s failed after %v: %v", s.short(), st.Elapsed.Round(time.Millisecond), err)
	} else {
		log.Printf("Session %s %s after %v (%d cues, %d missed)",
			s.short(), outcome, st.Elapsed.Round(time.Millisecond), st.Cues.Cued, st.Cues.Missed)
	}
	if d := s.dropped.Load(); d > 0 {
		log.Printf("Dropped %d cue notifications", d)
	}
	s.notify(func(h Hooks, st Status) { h.Stopped(st, err) })
	s.cache.Purge()
}

func (s *Session) notify(fn func(Hooks, Status)) {
	if len(s.deps.Hooks) == 0 {
		return
	}
	st := s.Status()
	for _, h := range s.deps.Hooks {
		fn(h, st)
	}
}

func (s *Session) short() string {
	return s.id[:8]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// idleClips backs sessions without speech
type idleClips struct{}

func (idleClips) Lookup(speech.Key) (*speech.Clip, speech.Status) { return nil, speech.Missing }
func (idleClips) Request(speech.Key) bool                         { return false }
