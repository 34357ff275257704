// ABOUTME: Unit tests for PCM packet encoder
// ABOUTME: Tests 16-bit and 24-bit little-endian packing
package encode

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/resonance-audio/resonance/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		errContains string
	}{
		{"16-bit", audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 2, BitDepth: 16}, ""},
		{"24-bit", audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 2, BitDepth: 24}, ""},
		{"wrong codec", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}, "invalid codec"},
		{"32-bit", audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 2, BitDepth: 32}, "unsupported bit depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.format)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPCM() unexpected error = %v", err)
			}
			if encoder == nil {
				t.Error("NewPCM() returned nil encoder")
			}
		})
	}
}

func TestPCMEncoder_Packing(t *testing.T) {
	samples := []int32{0, 0x7FFF00, -0x800000, 0x123456, -0x567890}

	t.Run("16-bit", func(t *testing.T) {
		encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 1, BitDepth: 16})
		if err != nil {
			t.Fatalf("NewPCM() failed: %v", err)
		}

		output, err := encoder.Encode(samples)
		if err != nil {
			t.Fatalf("Encode() failed: %v", err)
		}
		if len(output) != len(samples)*2 {
			t.Fatalf("output size = %d, want %d", len(output), len(samples)*2)
		}
		for i, sample := range samples {
			got := int16(binary.LittleEndian.Uint16(output[i*2:]))
			if want := audio.SampleToInt16(sample); got != want {
				t.Errorf("sample %d: got %d, want %d", i, got, want)
			}
		}
	})

	t.Run("24-bit", func(t *testing.T) {
		encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 1, BitDepth: 24})
		if err != nil {
			t.Fatalf("NewPCM() failed: %v", err)
		}

		output, err := encoder.Encode(samples)
		if err != nil {
			t.Fatalf("Encode() failed: %v", err)
		}
		if len(output) != len(samples)*3 {
			t.Fatalf("output size = %d, want %d", len(output), len(samples)*3)
		}
		for i, sample := range samples {
			got := audio.SampleFrom24Bit([3]byte{output[i*3], output[i*3+1], output[i*3+2]})
			if got != sample {
				t.Errorf("sample %d: got %d, want %d", i, got, sample)
			}
		}
	})
}
