// ABOUTME: Per-frame mixer combining tone, breath, isochronic, bilateral and voice layers
// ABOUTME: Every layer is a pure function of the sample index; output passes a soft limiter
package mixer

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/synth"
)

const (
	DefaultFrameSize = 1024
	DefaultAmplitude = 0.25
	DefaultVoiceGain = 0.8
	DefaultFade      = 1.0
	DefaultFloor     = 0.3

	// LimiterKnee is the level above which the limiter compresses
	LimiterKnee = 0.8
)

// BreathTarget selects what the breath envelope modulates
type BreathTarget string

const (
	BreathAmplitude BreathTarget = "amplitude"
	BreathPan       BreathTarget = "pan"
	BreathBoth      BreathTarget = "both"
	BreathNone      BreathTarget = "none"
)

// Voice mixes speech into a stereo buffer at the given sample offset
type Voice interface {
	Mix(dst []float32, start int64, gain float32)
}

// Config describes the mix
type Config struct {
	SampleRate   int
	FrameSize    int
	Frames       int64 // total session length in frames, 0 for unbounded
	Tone         synth.ToneSpec
	Amplitude    float64
	Isochronic   *synth.IsochronicSpec
	Breath       pacer.BreathProfile
	BreathTarget BreathTarget
	BreathFloor  float64 // tone level at the bottom of the breath, as a fraction
	Bilateral    *pacer.BilateralSpec
	VoiceGain    float64
	FadeIn       float64 // seconds
	FadeOut      float64 // seconds
}

// Buffer is an interleaved stereo float32 frame buffer, reused every tick
type Buffer []float32

// NewBuffer allocates a buffer holding frames stereo frames
func NewBuffer(frames int) Buffer {
	return make(Buffer, frames*2)
}

// Frames returns the number of stereo frames in the buffer
func (b Buffer) Frames() int {
	return len(b) / 2
}

// Mixer renders session audio frame by frame. Render must only be called from
// the single producer goroutine; Position, BeginFadeOut and Done are safe anywhere.
type Mixer struct {
	cfg       Config
	tone      synth.Tone
	gate      *synth.Gate
	breath    pacer.Breath
	bilateral *pacer.Bilateral
	voice     Voice

	fadeIn   int64
	fadeOut  int64
	outStart int64 // first sample of the fade-out, -1 until it begins
	outEnd   int64

	position atomic.Int64
	stopReq  atomic.Bool
	done     atomic.Bool
	limited  atomic.Int64
}

// New creates a mixer. voice may be nil for tone-only sessions.
func New(cfg Config, voice Voice) (*Mixer, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", cfg.SampleRate)
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.Amplitude <= 0 {
		cfg.Amplitude = DefaultAmplitude
	}
	if cfg.Amplitude > 1 {
		return nil, fmt.Errorf("amplitude %.2f above 1", cfg.Amplitude)
	}
	if cfg.VoiceGain <= 0 {
		cfg.VoiceGain = DefaultVoiceGain
	}
	if cfg.BreathTarget == "" {
		cfg.BreathTarget = BreathAmplitude
	}
	switch cfg.BreathTarget {
	case BreathAmplitude, BreathPan, BreathBoth, BreathNone:
	default:
		return nil, fmt.Errorf("unknown breath target %q", cfg.BreathTarget)
	}
	if cfg.BreathFloor < 0 || cfg.BreathFloor > 1 {
		return nil, fmt.Errorf("breath floor %.2f outside [0,1]", cfg.BreathFloor)
	}
	if cfg.Frames < 0 {
		return nil, fmt.Errorf("negative session length")
	}
	if err := cfg.Tone.Validate(cfg.SampleRate); err != nil {
		return nil, err
	}
	if err := cfg.Breath.Validate(); err != nil {
		return nil, err
	}

	m := &Mixer{
		cfg:      cfg,
		tone:     synth.NewTone(cfg.Tone, cfg.SampleRate),
		breath:   pacer.NewBreath(cfg.Breath, cfg.SampleRate),
		voice:    voice,
		fadeIn:   rampFrames(cfg.FadeIn, cfg.SampleRate),
		fadeOut:  rampFrames(cfg.FadeOut, cfg.SampleRate),
		outStart: -1,
	}

	if cfg.Isochronic != nil {
		g, err := synth.NewGate(*cfg.Isochronic, cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		m.gate = &g
	}
	if cfg.Bilateral != nil {
		if err := cfg.Bilateral.Validate(); err != nil {
			return nil, err
		}
		b := pacer.NewBilateral(*cfg.Bilateral, cfg.SampleRate)
		m.bilateral = &b
	}

	if cfg.Frames > 0 {
		if m.fadeOut > cfg.Frames {
			m.fadeOut = cfg.Frames
		}
		m.outStart = cfg.Frames - m.fadeOut
		m.outEnd = cfg.Frames
	}
	return m, nil
}

// rampFrames converts a fade in seconds to samples, never shorter than the click bound
func rampFrames(seconds float64, sampleRate int) int64 {
	if seconds <= 0 {
		seconds = DefaultFade
	}
	frames := int64(math.Round(seconds * float64(sampleRate)))
	if floor := int64(synth.MinRampSamples()); frames < floor {
		frames = floor
	}
	return frames
}

// Config returns the resolved configuration
func (m *Mixer) Config() Config {
	return m.cfg
}

// Breath returns the breath pacer driving the mix
func (m *Mixer) Breath() pacer.Breath {
	return m.breath
}

// Pan returns the bilateral pan at sample n after breath width scaling
func (m *Mixer) Pan(n int64) float64 {
	if m.bilateral == nil {
		return 0
	}
	pan := m.bilateral.Pan(n)
	if m.cfg.BreathTarget == BreathPan || m.cfg.BreathTarget == BreathBoth {
		pan *= m.breath.Envelope(n)
	}
	return pan
}

// Tone returns the tone generator
func (m *Mixer) Tone() synth.Tone {
	return m.tone
}

// Position returns the index of the next sample to be rendered
func (m *Mixer) Position() int64 {
	return m.position.Load()
}

// BeginFadeOut requests a fade-out starting at the next frame boundary
func (m *Mixer) BeginFadeOut() {
	m.stopReq.Store(true)
}

// Done reports whether the session has ended and no more audio will be produced
func (m *Mixer) Done() bool {
	return m.done.Load()
}

// Limited returns how many samples the limiter has compressed
func (m *Mixer) Limited() int64 {
	return m.limited.Load()
}

// Render fills buf with the next frames and returns how many carry audio.
// Frames past the end of the session are zeroed; 0 means the session is over.
func (m *Mixer) Render(buf Buffer) int {
	for i := range buf {
		buf[i] = 0
	}
	if m.done.Load() {
		return 0
	}

	start := m.position.Load()
	frames := buf.Frames()

	if m.stopReq.Load() && (m.outStart < 0 || m.outStart > start) {
		m.outStart = start
		m.outEnd = start + m.fadeOut
	}
	if m.outStart >= 0 && m.outEnd-start < int64(frames) {
		frames = int(m.outEnd - start)
		if frames < 0 {
			frames = 0
		}
	}

	m.renderTone(buf, start, frames)
	if m.voice != nil {
		m.voice.Mix(buf[:frames*2], start, float32(m.cfg.VoiceGain))
	}
	m.finish(buf, start, frames)

	m.position.Store(start + int64(frames))
	if m.outStart >= 0 && start+int64(frames) >= m.outEnd {
		m.done.Store(true)
	}
	return frames
}

func (m *Mixer) renderTone(buf Buffer, start int64, frames int) {
	for i := 0; i < frames; i++ {
		n := start + int64(i)
		left, right := m.tone.Stereo(n)
		gl, gr := m.toneGains(n)
		buf[i*2] = float32(left * gl)
		buf[i*2+1] = float32(right * gr)
	}
}

// toneGains returns the per-channel tone gain at sample n before session fades
func (m *Mixer) toneGains(n int64) (left, right float64) {
	gain := m.cfg.Amplitude
	if m.cfg.BreathTarget == BreathAmplitude || m.cfg.BreathTarget == BreathBoth {
		floor := m.cfg.BreathFloor
		gain *= floor + (1-floor)*m.breath.Envelope(n)
	}
	if m.gate != nil {
		gain *= m.gate.Gain(n)
	}
	gl, gr := pacer.Gains(m.Pan(n))
	return gain * gl, gain * gr
}

// finish applies the session fades and the limiter
func (m *Mixer) finish(buf Buffer, start int64, frames int) {
	for i := 0; i < frames; i++ {
		g := m.fade(start + int64(i))
		for c := 0; c < 2; c++ {
			v := float64(buf[i*2+c]) * g
			if math.Abs(v) > LimiterKnee {
				m.limited.Add(1)
			}
			buf[i*2+c] = float32(Limit(v))
		}
	}
}

// fade returns the combined fade-in and fade-out gain at sample n
func (m *Mixer) fade(n int64) float64 {
	g := 1.0
	if n < m.fadeIn {
		g = synth.Smoothstep(float64(n) / float64(m.fadeIn))
	}
	if m.outStart >= 0 && n >= m.outStart {
		span := m.outEnd - m.outStart
		if span <= 0 {
			return 0
		}
		g *= 1 - synth.Smoothstep(float64(n-m.outStart)/float64(span))
	}
	return g
}

// Limit is linear below LimiterKnee and compresses with tanh above it, so the
// result always stays inside (-1, 1)
func Limit(x float64) float64 {
	a := math.Abs(x)
	if a <= LimiterKnee {
		return x
	}
	headroom := 1 - LimiterKnee
	y := LimiterKnee + headroom*math.Tanh((a-LimiterKnee)/headroom)
	if x < 0 {
		return -y
	}
	return y
}
