// ABOUTME: Unit tests for Opus encoder
// ABOUTME: Tests 20ms framing and packet bounds
package encode

import (
	"math"
	"testing"

	"github.com/resonance-audio/resonance/pkg/audio"
)

func TestNewOpus_InvalidCodec(t *testing.T) {
	if _, err := NewOpus(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}); err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}
}

func TestOpusEncoder_Encode(t *testing.T) {
	encoder, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	if encoder.FrameSize() != 960 {
		t.Fatalf("FrameSize() = %d, want 960", encoder.FrameSize())
	}

	samples := make([]int32, encoder.FrameSize()*2)
	for i := 0; i < encoder.FrameSize(); i++ {
		v := audio.FloatToSample(float32(0.25 * math.Sin(2*math.Pi*220*float64(i)/48000)))
		samples[i*2] = v
		samples[i*2+1] = v
	}

	for name, frame := range map[string][]int32{"tone": samples, "silence": make([]int32, len(samples))} {
		output, err := encoder.Encode(frame)
		if err != nil {
			t.Fatalf("%s: Encode() failed: %v", name, err)
		}
		if len(output) == 0 || len(output) > maxOpusPacket {
			t.Errorf("%s: packet size %d out of range", name, len(output))
		}
	}
}

func TestOpusEncoder_WrongFrameLength(t *testing.T) {
	encoder, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}

	if _, err := encoder.Encode(make([]int32, 100)); err == nil {
		t.Fatal("expected error for short frame, got nil")
	}
}
