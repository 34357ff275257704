// ABOUTME: Session configuration and validation
// ABOUTME: Every field is checked before the audio loop starts
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/synth"
)

// Mode selects the output sink
type Mode string

const (
	ModeLive Mode = "live"
	ModeFile Mode = "file"
)

const (
	minSampleRate = 8000
	maxSampleRate = 192000
)

// Config describes one session
type Config struct {
	Preset     string
	SampleRate int
	FrameSize  int
	Duration   time.Duration // 0 runs until cancelled (live only)
	Mode       Mode
	OutPath    string
	BitDepth   int

	Tone         synth.ToneSpec
	Amplitude    float64
	Isochronic   *synth.IsochronicSpec
	Breath       pacer.BreathProfile
	BreathTarget mixer.BreathTarget
	BreathFloor  float64
	Bilateral    *pacer.BilateralSpec
	VoiceGain    float64
	FadeIn       float64 // seconds
	FadeOut      float64 // seconds

	Rounds     []affirm.Round
	Exhaust    affirm.Exhaust
	StartCycle int64
	Lookahead  int
	MaxQueued  int

	Workers       int
	RenderTimeout time.Duration
	CacheSize     int
}

// Frames returns the session length in frames, 0 when unbounded
func (c Config) Frames() int64 {
	whole := int64(c.Duration/time.Second) * int64(c.SampleRate)
	part := int64(c.Duration%time.Second) * int64(c.SampleRate) / int64(time.Second)
	return whole + part
}

// Validate checks the configuration and returns a *ConfigurationError
func (c Config) Validate() error {
	invalid := func(field string, format string, args ...any) error {
		return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
	}
	wrap := func(field string, err error) error {
		return &ConfigurationError{Field: field, Err: err}
	}

	if c.SampleRate < minSampleRate || c.SampleRate > maxSampleRate {
		return invalid("sample_rate", "%d outside [%d, %d]", c.SampleRate, minSampleRate, maxSampleRate)
	}
	if c.FrameSize < 0 {
		return invalid("frame_size", "must not be negative, got %d", c.FrameSize)
	}
	if c.Duration < 0 {
		return invalid("duration", "must not be negative, got %v", c.Duration)
	}

	switch c.Mode {
	case ModeLive:
	case ModeFile:
		if c.OutPath == "" {
			return invalid("out", "file output needs a path")
		}
		if c.Duration == 0 {
			return invalid("duration", "file output needs a duration")
		}
		if c.BitDepth != 16 && c.BitDepth != 24 {
			return invalid("bit_depth", "%d not supported (16 or 24)", c.BitDepth)
		}
	default:
		return invalid("output", "unknown mode %q (live or file)", c.Mode)
	}

	if err := c.Tone.Validate(c.SampleRate); err != nil {
		return wrap("tone", err)
	}
	if c.Amplitude < 0 || c.Amplitude > 1 {
		return invalid("amplitude", "%.2f outside [0, 1]", c.Amplitude)
	}
	if c.VoiceGain < 0 || c.VoiceGain > 1 {
		return invalid("voice_gain", "%.2f outside [0, 1]", c.VoiceGain)
	}
	if c.BreathFloor < 0 || c.BreathFloor > 1 {
		return invalid("breath_floor", "%.2f outside [0, 1]", c.BreathFloor)
	}
	if err := c.Breath.Validate(); err != nil {
		return wrap("breath", err)
	}
	if c.Isochronic != nil {
		if _, err := synth.NewGate(*c.Isochronic, c.SampleRate); err != nil {
			return wrap("isochronic", err)
		}
	}
	if c.Bilateral != nil {
		if err := c.Bilateral.Validate(); err != nil {
			return wrap("bilateral", err)
		}
	}

	switch c.Exhaust {
	case "", affirm.ExhaustLoop, affirm.ExhaustAdvance, affirm.ExhaustSilent:
	default:
		return invalid("exhaust", "unknown policy %q (loop, advance or silent)", c.Exhaust)
	}
	for _, r := range c.Rounds {
		if r.Len() == 0 {
			return invalid("rounds", "round %q has no utterances", r.Name)
		}
	}
	if c.StartCycle < 0 {
		return invalid("start_cycle", "must not be negative, got %d", c.StartCycle)
	}
	if c.Lookahead < 0 || c.MaxQueued < 0 {
		return wrap("affirmations", errors.New("lookahead and queue size must not be negative"))
	}
	if c.Workers < 0 || c.CacheSize < 0 {
		return wrap("speech", errors.New("workers and cache size must not be negative"))
	}
	if c.RenderTimeout < 0 {
		return invalid("render_timeout", "must not be negative, got %v", c.RenderTimeout)
	}
	return nil
}

// mixerConfig extracts the mixer settings
func (c Config) mixerConfig() mixer.Config {
	return mixer.Config{
		SampleRate:   c.SampleRate,
		FrameSize:    c.FrameSize,
		Frames:       c.Frames(),
		Tone:         c.Tone,
		Amplitude:    c.Amplitude,
		Isochronic:   c.Isochronic,
		Breath:       c.Breath,
		BreathTarget: c.BreathTarget,
		BreathFloor:  c.BreathFloor,
		Bilateral:    c.Bilateral,
		VoiceGain:    c.VoiceGain,
		FadeIn:       c.FadeIn,
		FadeOut:      c.FadeOut,
	}
}
