// ABOUTME: Tone generator for pure, binaural and ramped tones
// ABOUTME: Every sample is a pure function of (sample index, spec)
package synth

import (
	"fmt"
	"math"
)

// Waveform selects the oscillator shape
type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
)

// Ramp sweeps the base frequency linearly from Start to End over Seconds
type Ramp struct {
	Start   float64 `yaml:"start"`
	End     float64 `yaml:"end"`
	Seconds float64 `yaml:"seconds"`
}

// ToneSpec describes the carrier tone
type ToneSpec struct {
	Frequency      float64  `yaml:"frequency"`
	BinauralOffset float64  `yaml:"binaural_offset"`
	Waveform       Waveform `yaml:"waveform"`
	Ramp           *Ramp    `yaml:"ramp,omitempty"`
}

// Validate checks the spec against the session sample rate
func (s ToneSpec) Validate(sampleRate int) error {
	nyquist := float64(sampleRate) / 2

	check := func(name string, hz float64) error {
		if hz <= 0 || hz >= nyquist {
			return fmt.Errorf("%s %.2fHz outside (0, %.0f)", name, hz, nyquist)
		}
		return nil
	}

	if s.Ramp != nil {
		if err := check("ramp start", s.Ramp.Start); err != nil {
			return err
		}
		if err := check("ramp end", s.Ramp.End); err != nil {
			return err
		}
		if s.Ramp.Seconds <= 0 {
			return fmt.Errorf("ramp duration must be positive, got %.2fs", s.Ramp.Seconds)
		}
	} else if err := check("frequency", s.Frequency); err != nil {
		return err
	}

	if s.BinauralOffset < 0 || s.BinauralOffset > 40 {
		return fmt.Errorf("binaural offset %.2fHz outside [0, 40]", s.BinauralOffset)
	}

	switch s.Waveform {
	case "", Sine, Triangle:
	default:
		return fmt.Errorf("unknown waveform %q", s.Waveform)
	}
	return nil
}

// Tone evaluates a ToneSpec at a fixed sample rate
type Tone struct {
	spec        ToneSpec
	sampleRate  int
	rampSamples int64
	rampCycles  float64 // fractional cycles accumulated over the whole ramp
}

// NewTone creates a tone generator
func NewTone(spec ToneSpec, sampleRate int) Tone {
	t := Tone{spec: spec, sampleRate: sampleRate}
	if spec.Ramp != nil {
		t.rampSamples = int64(math.Round(spec.Ramp.Seconds * float64(sampleRate)))
		t.rampCycles = t.rampPhase(t.rampSamples)
	}
	return t
}

// Spec returns the tone's spec
func (t Tone) Spec() ToneSpec {
	return t.spec
}

// Frequency returns the instantaneous base frequency at sample n
func (t Tone) Frequency(n int64) float64 {
	r := t.spec.Ramp
	if r == nil {
		return t.spec.Frequency
	}
	if n >= t.rampSamples {
		return r.End
	}
	return r.Start + (r.End-r.Start)*float64(n)/float64(t.rampSamples)
}

// rampPhase integrates the linear sweep from 0 to n samples (n <= rampSamples)
// and returns the fractional cycle count
func (t Tone) rampPhase(n int64) float64 {
	r := t.spec.Ramp
	sr := float64(t.sampleRate)
	secs := float64(n) / sr
	total := float64(t.rampSamples) / sr
	cycles := r.Start*secs + (r.End-r.Start)*secs*secs/(2*total)
	return cycles - math.Floor(cycles)
}

// phase returns the base channel's position within its cycle at sample n, in [0,1)
func (t Tone) phase(n int64) float64 {
	r := t.spec.Ramp
	if r == nil {
		return frac(t.spec.Frequency, n, t.sampleRate)
	}
	if n < t.rampSamples {
		return t.rampPhase(n)
	}
	p := t.rampCycles + frac(r.End, n-t.rampSamples, t.sampleRate)
	return p - math.Floor(p)
}

// Sample returns the base channel at sample n, in [-1,1]
func (t Tone) Sample(n int64) float64 {
	return t.shape(t.phase(n))
}

// Stereo returns left at the base frequency and right offset by the binaural beat
func (t Tone) Stereo(n int64) (left, right float64) {
	p := t.phase(n)
	left = t.shape(p)
	if t.spec.BinauralOffset == 0 {
		return left, left
	}
	q := p + frac(t.spec.BinauralOffset, n, t.sampleRate)
	return left, t.shape(q - math.Floor(q))
}

func (t Tone) shape(p float64) float64 {
	if t.spec.Waveform == Triangle {
		q := p + 0.25
		q -= math.Floor(q)
		return 1 - 4*math.Abs(q-0.5)
	}
	return math.Sin(2 * math.Pi * p)
}
