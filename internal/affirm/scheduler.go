// ABOUTME: Affirmation scheduler cueing one utterance per breath cycle
// ABOUTME: Clock-anchored cues, lookahead render requests, and a no-overlap playback queue
package affirm

import (
	"fmt"
	"sync/atomic"

	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/speech"
)

// Exhaust decides what happens after the last utterance of a round
type Exhaust string

const (
	ExhaustLoop    Exhaust = "loop"
	ExhaustAdvance Exhaust = "advance"
	ExhaustSilent  Exhaust = "silent"
)

const (
	DefaultLookahead = 2
	DefaultMaxQueued = 4
)

// State is the scheduler's externally visible state
type State int32

const (
	Idle State = iota
	AwaitingClip
	Playing
	Cueing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingClip:
		return "awaiting clip"
	case Playing:
		return "playing"
	case Cueing:
		return "cueing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// CueOutcome records what happened at a cue boundary
type CueOutcome int

const (
	CueQueued   CueOutcome = iota // clip ready, queued behind any playing clip
	CueMissed                     // clip not ready, cycle stays silent
	CueDeferred                   // playback queue full, utterance retried next cycle
)

func (o CueOutcome) String() string {
	switch o {
	case CueQueued:
		return "queued"
	case CueMissed:
		return "missed"
	case CueDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Cue describes one cue boundary
type Cue struct {
	Ordinal   int64 // position in the overall utterance sequence
	Round     int
	Index     int
	Utterance Utterance
	At        int64 // sample index of the boundary
	Outcome   CueOutcome
	Status    speech.Status
}

// Clips is the scheduler's view of the render cache and pool
type Clips interface {
	// Lookup returns a ready clip without blocking
	Lookup(key speech.Key) (*speech.Clip, speech.Status)
	// Request asks for a background render without blocking
	Request(key speech.Key) bool
}

// Config configures a scheduler
type Config struct {
	Rounds     []Round
	Exhaust    Exhaust
	StartCycle int64 // breath cycle of the first cue
	Lookahead  int   // utterances requested ahead of the cursor
	MaxQueued  int   // ready clips allowed to wait behind the playing one
	OnCue      func(Cue)
}

// Stats are counters safe to read from any goroutine
type Stats struct {
	Cued     int64
	Played   int64
	Missed   int64
	Deferred int64
}

type position struct {
	round, index int
}

// Scheduler is driven by the real-time producer; only Stats, State and Current
// may be read from other goroutines
type Scheduler struct {
	cfg    Config
	breath pacer.Breath
	clips  Clips

	cursor    position
	ordinal   int64
	nextCycle int64
	done      bool
	nextReady bool

	queue  []*speech.Clip
	active *speech.Clip
	pos    int

	state    atomic.Int32
	current  atomic.Pointer[Utterance]
	cued     atomic.Int64
	played   atomic.Int64
	missed   atomic.Int64
	deferred atomic.Int64
}

// NewScheduler creates a scheduler over the given rounds
func NewScheduler(cfg Config, breath pacer.Breath, clips Clips) (*Scheduler, error) {
	switch cfg.Exhaust {
	case "":
		cfg.Exhaust = ExhaustLoop
	case ExhaustLoop, ExhaustAdvance, ExhaustSilent:
	default:
		return nil, fmt.Errorf("unknown exhaustion policy %q", cfg.Exhaust)
	}
	for _, r := range cfg.Rounds {
		if r.Len() == 0 {
			return nil, fmt.Errorf("round %q has no utterances", r.Name)
		}
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultLookahead
	}
	if cfg.MaxQueued <= 0 {
		cfg.MaxQueued = DefaultMaxQueued
	}
	if cfg.StartCycle < 0 {
		cfg.StartCycle = 0
	}

	s := &Scheduler{
		cfg:       cfg,
		breath:    breath,
		clips:     clips,
		nextCycle: cfg.StartCycle,
		done:      len(cfg.Rounds) == 0 || breath.CycleSamples() <= 0,
		queue:     make([]*speech.Clip, 0, cfg.MaxQueued),
	}
	return s, nil
}

// Upcoming returns the keys of the next n utterances from the cursor
func (s *Scheduler) Upcoming(n int) []speech.Key {
	if s.done {
		return nil
	}
	keys := make([]speech.Key, 0, n)
	p, ok := s.cursor, true
	for i := 0; i < n && ok; i++ {
		keys = append(keys, s.key(p))
		p, ok = s.advance(p)
	}
	return keys
}

// Prime issues the initial lookahead requests and returns the keys requested
func (s *Scheduler) Prime() []speech.Key {
	return s.requestAhead()
}

// NextCue returns the sample index of the next cue boundary, or -1 when finished
func (s *Scheduler) NextCue() int64 {
	if s.done {
		return -1
	}
	return s.breath.CycleStart(s.nextCycle)
}

// Due reports the utterance that will be looked up inside [start, start+frames),
// so an offline producer can wait for its render first
func (s *Scheduler) Due(start int64, frames int) (speech.Key, bool) {
	if s.done {
		return speech.Key{}, false
	}
	at := s.breath.CycleStart(s.nextCycle)
	if at >= start+int64(frames) || len(s.queue) >= s.cfg.MaxQueued {
		return speech.Key{}, false
	}
	return s.key(s.cursor), true
}

// Mix adds voice audio for the stereo frames starting at sample start into dst.
// Cues fire at their exact sample, and a clip queued at a boundary starts there
// when nothing else is playing.
func (s *Scheduler) Mix(dst []float32, start int64, gain float32) {
	frames := len(dst) / 2
	cueing := false

	i := 0
	for i < frames {
		end := frames
		if !s.done {
			at := s.breath.CycleStart(s.nextCycle)
			if at <= start+int64(i) {
				s.cue(at)
				cueing = true
				continue
			}
			if at < start+int64(frames) {
				end = int(at - start)
			}
		}
		i = s.play(dst, i, end, gain)
	}

	switch {
	case s.active != nil:
		s.state.Store(int32(Playing))
	case cueing:
		s.state.Store(int32(Cueing))
	case !s.done && !s.nextReady:
		s.state.Store(int32(AwaitingClip))
	default:
		s.state.Store(int32(Idle))
	}
}

// play mixes the active clip, then queued clips back to back, over frames [i, end)
func (s *Scheduler) play(dst []float32, i, end int, gain float32) int {
	for i < end {
		if s.active == nil {
			if len(s.queue) == 0 {
				return end
			}
			s.active = s.queue[0]
			copy(s.queue, s.queue[1:])
			s.queue[len(s.queue)-1] = nil
			s.queue = s.queue[:len(s.queue)-1]
			s.pos = 0
			s.played.Add(1)
		}

		n := s.active.Frames - s.pos
		if n > end-i {
			n = end - i
		}
		src := s.active.Samples[s.pos*2 : (s.pos+n)*2]
		out := dst[i*2 : (i+n)*2]
		for k, v := range src {
			out[k] += v * gain
		}
		i += n
		s.pos += n

		if s.pos >= s.active.Frames {
			s.active = nil
		}
	}
	return i
}

func (s *Scheduler) cue(at int64) {
	u := s.utterance(s.cursor)
	c := Cue{
		Ordinal:   s.ordinal,
		Round:     s.cursor.round,
		Index:     s.cursor.index,
		Utterance: u,
		At:        at,
	}
	s.nextCycle++

	if len(s.queue) >= s.cfg.MaxQueued {
		c.Outcome = CueDeferred
		s.deferred.Add(1)
		s.emit(c)
		s.requestAhead()
		return
	}

	clip, status := s.clips.Lookup(s.key(s.cursor))
	c.Status = status
	if status == speech.Ready {
		c.Outcome = CueQueued
		s.queue = append(s.queue, clip)
		s.current.Store(&u)
		s.cued.Add(1)
	} else {
		c.Outcome = CueMissed
		s.missed.Add(1)
	}
	s.emit(c)

	s.ordinal++
	next, ok := s.advance(s.cursor)
	if !ok {
		s.done = true
		return
	}
	s.cursor = next
	s.requestAhead()
}

// requestAhead asks for the next Lookahead utterances, stopping at the first
// rejected request so later ones are retried at the next boundary
func (s *Scheduler) requestAhead() []speech.Key {
	keys := s.Upcoming(s.cfg.Lookahead)
	for i, key := range keys {
		if !s.clips.Request(key) {
			keys = keys[:i]
			break
		}
	}
	if len(keys) > 0 {
		_, status := s.clips.Lookup(keys[0])
		s.nextReady = status == speech.Ready
	}
	return keys
}

func (s *Scheduler) emit(c Cue) {
	if s.cfg.OnCue != nil {
		s.cfg.OnCue(c)
	}
}

func (s *Scheduler) advance(p position) (position, bool) {
	p.index++
	if p.index < s.cfg.Rounds[p.round].Len() {
		return p, true
	}
	switch s.cfg.Exhaust {
	case ExhaustLoop:
		p.index = 0
	case ExhaustAdvance:
		p.round = (p.round + 1) % len(s.cfg.Rounds)
		p.index = 0
	default:
		return p, false
	}
	return p, true
}

func (s *Scheduler) utterance(p position) Utterance {
	return s.cfg.Rounds[p.round].Utterances[p.index]
}

func (s *Scheduler) key(p position) speech.Key {
	u := s.utterance(p)
	return speech.Key{Voice: u.Voice, Text: u.Text}
}

// State returns the current scheduler state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Current returns the most recently queued utterance, if any
func (s *Scheduler) Current() (Utterance, bool) {
	if u := s.current.Load(); u != nil {
		return *u, true
	}
	return Utterance{}, false
}

// Stats returns cue counters
func (s *Scheduler) Stats() Stats {
	return Stats{
		Cued:     s.cued.Load(),
		Played:   s.played.Load(),
		Missed:   s.missed.Load(),
		Deferred: s.deferred.Load(),
	}
}

// Finished reports whether every cue has fired and all queued audio has played
func (s *Scheduler) Finished() bool {
	return s.done && s.active == nil && len(s.queue) == 0
}
