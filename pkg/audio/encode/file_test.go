// ABOUTME: Tests for FLAC and WAV file writers
// ABOUTME: Writes rendered samples to disk and decodes them back
package encode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/decode"
)

func rampSamples(frames int) []int32 {
	samples := make([]int32, frames*2)
	for i := 0; i < frames; i++ {
		samples[i*2] = int32(i*97%200000) - 100000
		samples[i*2+1] = -samples[i*2]
	}
	return samples
}

func writeFile(t *testing.T, format audio.Format, chunks ...[]int32) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session."+format.Codec)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w, err := NewFile(f, format)
	if err != nil {
		t.Fatalf("NewFile() failed: %v", err)
	}
	for _, chunk := range chunks {
		if err := w.Write(chunk); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func TestFLACWriter_RoundTrip24Bit(t *testing.T) {
	format := audio.Format{Codec: "flac", SampleRate: 44100, Channels: 2, BitDepth: 24}

	// Spans several blocks plus a short tail, and one all-silent block
	samples := rampSamples(FLACBlockSize*2 + 123)
	silence := make([]int32, FLACBlockSize*2)

	data := writeFile(t, format, samples[:1000], samples[1000:], silence)

	buf, err := decode.Clip(data, audio.Format{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Format.SampleRate != 44100 || buf.Format.Channels != 2 || buf.Format.BitDepth != 24 {
		t.Errorf("unexpected format %+v", buf.Format)
	}

	want := append(append([]int32{}, samples...), silence...)
	if len(buf.Samples) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Samples), len(want))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Samples[i], want[i])
		}
	}
}

func TestFLACWriter_16Bit(t *testing.T) {
	format := audio.Format{Codec: "flac", SampleRate: 48000, Channels: 2, BitDepth: 16}
	samples := rampSamples(500)

	data := writeFile(t, format, samples)

	buf, err := decode.Clip(data, audio.Format{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Format.BitDepth != 16 {
		t.Errorf("bit depth = %d, want 16", buf.Format.BitDepth)
	}
	for i, s := range samples {
		if want := int32(audio.SampleToInt16(s)) << 8; buf.Samples[i] != want {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Samples[i], want)
		}
	}
}

func TestWAVWriter_RoundTrip(t *testing.T) {
	format := audio.Format{Codec: "wav", SampleRate: 44100, Channels: 2, BitDepth: 24}
	samples := rampSamples(300)

	data := writeFile(t, format, samples)

	buf, err := decode.Clip(data, audio.Format{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Frames() != 300 {
		t.Fatalf("decoded %d frames, want 300", buf.Frames())
	}
	for i, s := range samples {
		if buf.Samples[i] != s {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Samples[i], s)
		}
	}
}

func TestNewFile_Rejects(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	tests := []struct {
		name   string
		format audio.Format
	}{
		{"opus is not a file codec", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}},
		{"bad depth", audio.Format{Codec: "flac", SampleRate: 44100, Channels: 2, BitDepth: 20}},
		{"no rate", audio.Format{Codec: "flac", Channels: 2, BitDepth: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFile(f, tt.format); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
