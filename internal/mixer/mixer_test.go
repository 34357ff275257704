// ABOUTME: Tests for the mixer
// ABOUTME: Covers determinism, block-size independence, the click bound, fades and the limiter
package mixer

import (
	"math"
	"testing"

	"github.com/resonance-audio/resonance/internal/pacer"
	"github.com/resonance-audio/resonance/internal/synth"
)

func testConfig() Config {
	return Config{
		SampleRate:   8000,
		Frames:       8000 * 4,
		Tone:         synth.ToneSpec{Frequency: 200, BinauralOffset: 6, Waveform: synth.Sine},
		Isochronic:   &synth.IsochronicSpec{Rate: 10, Duty: 0.5},
		Breath:       pacer.BreathProfile{Inhale: 0.5, HoldIn: 0.25, Exhale: 0.5, HoldOut: 0.25},
		BreathTarget: BreathBoth,
		BreathFloor:  DefaultFloor,
		Bilateral:    &pacer.BilateralSpec{Period: 0.5, Depth: 1},
		FadeIn:       0.5,
		FadeOut:      0.5,
	}
}

// renderAll renders until the mixer is done, using block-sized buffers
func renderAll(t *testing.T, m *Mixer, block int) []float32 {
	t.Helper()
	var out []float32
	buf := NewBuffer(block)
	for i := 0; i < 1_000_000; i++ {
		n := m.Render(buf)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n*2]...)
	}
	t.Fatal("mixer never finished")
	return nil
}

type constVoice struct {
	value float32
	calls int
}

func (v *constVoice) Mix(dst []float32, start int64, gain float32) {
	v.calls++
	for i := range dst {
		dst[i] += v.value * gain
	}
}

func TestMixer_Deterministic(t *testing.T) {
	a, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outA := renderAll(t, a, 512)
	outB := renderAll(t, b, 512)
	if len(outA) != len(outB) {
		t.Fatalf("lengths differ: %d vs %d", len(outA), len(outB))
	}
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, outA[i], outB[i])
		}
	}
}

func TestMixer_BlockSizeIndependent(t *testing.T) {
	small, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	large, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outS := renderAll(t, small, 160)
	outL := renderAll(t, large, 4096)
	if len(outS) != 2*8000*4 || len(outL) != len(outS) {
		t.Fatalf("lengths %d and %d, want %d", len(outS), len(outL), 2*8000*4)
	}
	for i := range outS {
		if outS[i] != outL[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, outS[i], outL[i])
		}
	}
}

func TestMixer_GainStepBound(t *testing.T) {
	m, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gain := func(n int64) (float64, float64) {
		l, r := m.toneGains(n)
		f := m.fade(n)
		return l * f, r * f
	}

	prevL, prevR := gain(0)
	for n := int64(1); n < m.cfg.Frames; n++ {
		l, r := gain(n)
		if math.Abs(l-prevL) > synth.MaxGainStep || math.Abs(r-prevR) > synth.MaxGainStep {
			t.Fatalf("gain step at sample %d: left %.5f right %.5f", n, l-prevL, r-prevR)
		}
		prevL, prevR = l, r
	}
}

func TestMixer_FadesToSilence(t *testing.T) {
	m, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := renderAll(t, m, 1000)

	if out[0] != 0 || out[1] != 0 {
		t.Errorf("first frame = %v %v, want silence", out[0], out[1])
	}
	last := out[len(out)-2:]
	for _, v := range last {
		if math.Abs(float64(v)) > 1e-3 {
			t.Errorf("last frame %v not faded out", last)
		}
	}
	if !m.Done() || m.Position() != 8000*4 {
		t.Errorf("done=%v position=%d", m.Done(), m.Position())
	}
}

func TestMixer_BeginFadeOut(t *testing.T) {
	cfg := testConfig()
	cfg.Frames = 0
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf := NewBuffer(1000)
	for i := 0; i < 5; i++ {
		if n := m.Render(buf); n != 1000 {
			t.Fatalf("unbounded render returned %d", n)
		}
	}

	m.BeginFadeOut()
	total := 0
	for {
		n := m.Render(buf)
		if n == 0 {
			break
		}
		total += n
	}
	if total != 4000 {
		t.Errorf("fade-out rendered %d frames, want 4000", total)
	}
	if m.Position() != 9000 || !m.Done() {
		t.Errorf("position=%d done=%v", m.Position(), m.Done())
	}
}

func TestMixer_VoiceLayer(t *testing.T) {
	cfg := testConfig()
	cfg.Frames = 0
	cfg.Amplitude = 0.01
	cfg.BreathTarget = BreathNone
	cfg.Isochronic = nil
	cfg.Bilateral = nil
	voice := &constVoice{value: 0.5}

	m, err := New(cfg, voice)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := NewBuffer(4000)
	m.Render(buf)
	m.Render(buf)

	if voice.calls != 2 {
		t.Errorf("voice mixed %d times, want 2", voice.calls)
	}
	// after the fade-in, voice at 0.5*0.8 dominates a 0.01 tone
	for i := 0; i < len(buf); i++ {
		if v := buf[i]; v < 0.38 || v > 0.42 {
			t.Fatalf("sample %d = %v, want about 0.4", i, v)
		}
	}
}

func TestMixer_LimiterBoundsOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Frames = 0
	cfg.Amplitude = 1
	voice := &constVoice{value: 1}

	m, err := New(cfg, voice)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := NewBuffer(8000)
	for i := 0; i < 3; i++ {
		m.Render(buf)
		for j, v := range buf {
			if v <= -1 || v >= 1 {
				t.Fatalf("sample %d = %v outside (-1,1)", j, v)
			}
		}
	}
	if m.Limited() == 0 {
		t.Error("expected limiter to engage")
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.5, 0.5},
		{-0.8, -0.8},
	}
	for _, tt := range tests {
		if got := Limit(tt.in); got != tt.want {
			t.Errorf("Limit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	prev := Limit(LimiterKnee)
	for x := LimiterKnee + 0.01; x < 2; x += 0.01 {
		y := Limit(x)
		if y <= prev || y >= 1 {
			t.Fatalf("Limit(%v) = %v not monotonic below 1", x, y)
		}
		if Limit(-x) != -y {
			t.Fatalf("Limit not symmetric at %v", x)
		}
		prev = y
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"amplitude", func(c *Config) { c.Amplitude = 2 }},
		{"breath target", func(c *Config) { c.BreathTarget = "tempo" }},
		{"floor", func(c *Config) { c.BreathFloor = 1.5 }},
		{"tone", func(c *Config) { c.Tone.Frequency = 5000 }},
		{"breath", func(c *Config) { c.Breath.Inhale = 0.1 }},
		{"bilateral", func(c *Config) { c.Bilateral.Period = 0.1 }},
		{"isochronic", func(c *Config) { c.Isochronic.Duty = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}
