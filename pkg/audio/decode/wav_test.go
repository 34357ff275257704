// ABOUTME: Tests for WAV decoder
// ABOUTME: Round-trips a go-audio encoded WAV file through the decoder
package decode

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/resonance-audio/resonance/pkg/audio"
)

func writeTestWAV(t *testing.T, sampleRate, bitDepth, channels int, data []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return raw
}

func TestWAVDecode16BitMono(t *testing.T) {
	raw := writeTestWAV(t, 24000, 16, 1, []int{0, 100, -100, 32767})

	if Sniff(raw) != "wav" {
		t.Fatalf("expected wav sniff, got %q", Sniff(raw))
	}

	buf, err := Clip(raw, audio.Format{})
	if err != nil {
		t.Fatalf("Clip failed: %v", err)
	}

	if buf.Format.SampleRate != 24000 || buf.Format.Channels != 1 || buf.Format.BitDepth != 16 {
		t.Errorf("unexpected format %+v", buf.Format)
	}

	expected := []int32{0, 100 << 8, -100 << 8, 32767 << 8}
	if len(buf.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(buf.Samples))
	}
	for i, want := range expected {
		if buf.Samples[i] != want {
			t.Errorf("sample[%d] = %d, want %d", i, buf.Samples[i], want)
		}
	}
}

func TestWAVDecode_Invalid(t *testing.T) {
	decoder, err := NewWAV(audio.Format{Codec: "wav"})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if _, err := decoder.Decode([]byte("not a wav")); err == nil {
		t.Fatal("expected error for invalid data, got nil")
	}
}
