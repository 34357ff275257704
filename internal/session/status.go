// ABOUTME: Session status snapshots for the UI, history and metrics
// ABOUTME: Derived from the atomic sample position, so reading never touches the audio path
package session

import (
	"time"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/pacer"
)

// Outcome is how a session ended
type Outcome string

const (
	OutcomePending   Outcome = "running"
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Status is a point-in-time view of a session
type Status struct {
	ID       string
	Preset   string
	Mode     Mode
	OutPath  string
	Started  time.Time
	Ended    time.Time
	Outcome  Outcome
	Position int64
	Elapsed  time.Duration // audio time rendered
	Duration time.Duration

	Breath    pacer.State
	Pan       float64
	Frequency float64

	Scheduler affirm.State
	Current   string
	Cues      affirm.Stats
	Timeouts  int64
	Cached    int

	Cancelled bool
	Done      bool
}

// Status returns a snapshot of the session
func (s *Session) Status() Status {
	pos := s.mixer.Position()
	rate := int64(s.cfg.SampleRate)

	s.mu.Lock()
	st := Status{
		ID:       s.id,
		Preset:   s.cfg.Preset,
		Mode:     s.cfg.Mode,
		OutPath:  s.cfg.OutPath,
		Started:  s.started,
		Ended:    s.ended,
		Outcome:  s.outcome,
		Position: pos,
		Duration: s.cfg.Duration,
	}
	s.mu.Unlock()

	st.Elapsed = time.Duration(pos/rate)*time.Second + time.Duration(pos%rate)*time.Second/time.Duration(rate)
	st.Breath = s.mixer.Breath().At(pos)
	st.Pan = s.mixer.Pan(pos)
	st.Frequency = s.mixer.Tone().Frequency(pos)

	st.Scheduler = s.sched.State()
	if u, ok := s.sched.Current(); ok {
		st.Current = u.Text
	}
	st.Cues = s.sched.Stats()
	st.Timeouts = s.misses.Load()
	st.Cached = s.cache.Len()

	st.Cancelled = s.cancelled.Load()
	st.Done = s.mixer.Done()
	return st
}
