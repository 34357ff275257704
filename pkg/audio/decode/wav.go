// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE clips (OS speech engines emit these) to int32 samples
package decode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/resonance-audio/resonance/pkg/audio"
)

// WAVDecoder decodes WAV audio
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV(format audio.Format) (Decoder, error) {
	if format.Codec != "wav" {
		return nil, fmt.Errorf("invalid codec for WAV decoder: %s", format.Codec)
	}
	return &WAVDecoder{}, nil
}

// Decode converts a complete WAV file to int32 samples
func (d *WAVDecoder) Decode(data []byte) (audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return audio.Buffer{}, fmt.Errorf("invalid WAV data")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to read WAV samples: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	channels := int(dec.NumChans)
	if channels == 0 {
		return audio.Buffer{}, fmt.Errorf("WAV has no channels")
	}

	samples := make([]int32, len(pcm.Data)-len(pcm.Data)%channels)
	for i := range samples {
		v := int32(pcm.Data[i])
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = scaleTo24(v, bitDepth)
	}

	return audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: int(dec.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}

// Close releases decoder resources
func (d *WAVDecoder) Close() error {
	return nil
}
