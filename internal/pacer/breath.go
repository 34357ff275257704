// ABOUTME: Breath pacer mapping elapsed samples to inhale/hold/exhale/hold phases
// ABOUTME: Produces an eased envelope that is flat during holds
package pacer

import (
	"fmt"
	"math"

	"github.com/resonance-audio/resonance/internal/synth"
)

// Phase is one of the four breath phases
type Phase int

const (
	Inhale Phase = iota
	HoldIn
	Exhale
	HoldOut
)

func (p Phase) String() string {
	switch p {
	case Inhale:
		return "inhale"
	case HoldIn:
		return "hold"
	case Exhale:
		return "exhale"
	case HoldOut:
		return "rest"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// minBreathSeconds keeps inhale and exhale slow enough for the envelope step bound
const minBreathSeconds = 0.5

// BreathProfile holds the four phase lengths in seconds
type BreathProfile struct {
	Inhale  float64 `yaml:"inhale"`
	HoldIn  float64 `yaml:"hold_in"`
	Exhale  float64 `yaml:"exhale"`
	HoldOut float64 `yaml:"hold_out"`
}

// Cycle returns the cycle length in seconds
func (p BreathProfile) Cycle() float64 {
	return p.Inhale + p.HoldIn + p.Exhale + p.HoldOut
}

// Validate checks phase lengths
func (p BreathProfile) Validate() error {
	if p.Inhale < minBreathSeconds || p.Exhale < minBreathSeconds {
		return fmt.Errorf("inhale and exhale must be at least %.1fs (got %.2fs, %.2fs)",
			minBreathSeconds, p.Inhale, p.Exhale)
	}
	if p.HoldIn < 0 || p.HoldOut < 0 {
		return fmt.Errorf("holds cannot be negative (got %.2fs, %.2fs)", p.HoldIn, p.HoldOut)
	}
	return nil
}

// State is the breath position at one sample
type State struct {
	Cycle    int64   // completed cycles before this sample
	Phase    Phase   // current phase
	Fraction float64 // progress through the phase in [0,1)
	Envelope float64 // eased level in [0,1]
}

// Breath evaluates a BreathProfile in samples
type Breath struct {
	profile BreathProfile
	ends    [4]int64 // sample offset within a cycle where each phase ends
	cycle   int64
}

// NewBreath creates a pacer. Phase boundaries are rounded to whole samples once,
// so every later comparison is integer arithmetic.
func NewBreath(profile BreathProfile, sampleRate int) Breath {
	b := Breath{profile: profile}
	sr := float64(sampleRate)
	acc := 0.0
	for i, secs := range []float64{profile.Inhale, profile.HoldIn, profile.Exhale, profile.HoldOut} {
		acc += secs
		b.ends[i] = int64(math.Round(acc * sr))
	}
	b.cycle = b.ends[HoldOut]
	return b
}

// Profile returns the profile in seconds
func (b Breath) Profile() BreathProfile {
	return b.profile
}

// CycleSamples returns the length of one breath cycle in samples
func (b Breath) CycleSamples() int64 {
	return b.cycle
}

// CycleStart returns the first sample of cycle k
func (b Breath) CycleStart(k int64) int64 {
	return k * b.cycle
}

// At returns the breath state at sample n
func (b Breath) At(n int64) State {
	if b.cycle <= 0 {
		return State{Envelope: 1}
	}

	s := State{Cycle: n / b.cycle}
	pos := n % b.cycle

	start := int64(0)
	for i, end := range b.ends {
		if pos < end {
			s.Phase = Phase(i)
			s.Fraction = float64(pos-start) / float64(end-start)
			break
		}
		start = end
	}

	switch s.Phase {
	case Inhale:
		s.Envelope = synth.Smoothstep(s.Fraction)
	case HoldIn:
		s.Envelope = 1
	case Exhale:
		s.Envelope = 1 - synth.Smoothstep(s.Fraction)
	case HoldOut:
		s.Envelope = 0
	}
	return s
}

// Envelope returns the eased level at sample n
func (b Breath) Envelope(n int64) float64 {
	return b.At(n).Envelope
}
