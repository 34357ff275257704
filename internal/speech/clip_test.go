// ABOUTME: Tests for clip preparation and the offline renderers
// ABOUTME: Checks edge fades, resampling to stereo and exec command expansion
package speech

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/resonance-audio/resonance/internal/synth"
	"github.com/resonance-audio/resonance/pkg/audio"
)

func TestNewClip_FadesAndStereo(t *testing.T) {
	clip := NewClip(Key{Voice: "v", Text: "t"}, monoBuffer(4410, 22050), testRate)

	if clip.Frames != 8820 {
		t.Fatalf("frames = %d, want 8820", clip.Frames)
	}
	if len(clip.Samples) != clip.Frames*2 {
		t.Fatalf("samples = %d, want %d", len(clip.Samples), clip.Frames*2)
	}
	if clip.Duration.Milliseconds() != 200 {
		t.Errorf("duration = %v, want 200ms", clip.Duration)
	}

	// Both ends start from silence and never step more than the bound
	if clip.Samples[0] != 0 || clip.Samples[len(clip.Samples)-1] != 0 {
		t.Errorf("edges not silent: %v %v", clip.Samples[0], clip.Samples[len(clip.Samples)-1])
	}
	for i := 1; i < clip.Frames; i++ {
		if d := math.Abs(float64(clip.Samples[i*2] - clip.Samples[(i-1)*2])); d > synth.MaxGainStep {
			t.Fatalf("step %v at frame %d", d, i)
		}
	}

	// Middle is untouched
	mid := clip.Samples[clip.Frames]
	if math.Abs(float64(mid)-0.5) > 1e-3 {
		t.Errorf("mid sample = %v, want 0.5", mid)
	}
}

func TestNewClip_ShortClipFadesHalfEach(t *testing.T) {
	clip := NewClip(Key{}, monoBuffer(40, testRate), testRate)
	if clip.Frames != 40 {
		t.Fatalf("frames = %d, want 40", clip.Frames)
	}
	if clip.Samples[0] != 0 {
		t.Errorf("first sample = %v, want 0", clip.Samples[0])
	}
}

func TestToneRenderer(t *testing.T) {
	r := NewToneRenderer()
	buf, err := r.Render(context.Background(), "Samantha", "I am safe here")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// Four words at 250ms each
	if buf.Frames() != 24000 {
		t.Errorf("frames = %d, want 24000", buf.Frames())
	}

	again, _ := r.Render(context.Background(), "Samantha", "I am safe here")
	for i := range buf.Samples {
		if buf.Samples[i] != again.Samples[i] {
			t.Fatal("tone renderer is not deterministic")
		}
	}

	r.FailText = map[string]bool{"boom": true}
	if _, err := r.Render(context.Background(), "x", "boom"); err == nil {
		t.Error("expected failure for FailText")
	}
}

func TestExecRenderer_Stdout(t *testing.T) {
	if _, err := exec.LookPath("head"); err != nil {
		t.Skip("head not available")
	}

	raw := audio.Format{SampleRate: 22050, Channels: 1, BitDepth: 16}
	r, err := NewExecRenderer("head -c 4410 /dev/zero", raw)
	if err != nil {
		t.Fatalf("NewExecRenderer failed: %v", err)
	}

	buf, err := r.Render(context.Background(), "any", "any text")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Frames() != 2205 || buf.Format.SampleRate != 22050 {
		t.Errorf("got %d frames at %dHz", buf.Frames(), buf.Format.SampleRate)
	}
}

func TestExecRenderer_OutFile(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}

	// The "voice" is a prepared WAV that cp copies to {out}
	src := filepath.Join(t.TempDir(), "voice.wav")
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 1600),
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	f.Close()

	r, err := NewExecRenderer("cp {voice} {out}", audio.Format{})
	if err != nil {
		t.Fatalf("NewExecRenderer failed: %v", err)
	}
	buf, err := r.Render(context.Background(), src, "ignored")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Frames() != 1600 || buf.Format.SampleRate != 16000 {
		t.Errorf("got %d frames at %dHz", buf.Frames(), buf.Format.SampleRate)
	}
}

func TestNewExecRenderer_Empty(t *testing.T) {
	if _, err := NewExecRenderer("   ", audio.Format{}); err == nil {
		t.Error("expected error for empty command")
	}
}
