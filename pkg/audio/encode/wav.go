// ABOUTME: WAV file writer
// ABOUTME: Encodes int32 samples into a RIFF/WAVE file via go-audio
package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/resonance-audio/resonance/pkg/audio"
)

// WAVWriter encodes PCM audio to WAV
type WAVWriter struct {
	enc    *wav.Encoder
	format audio.Format
	buf    *goaudio.IntBuffer
}

// NewWAV creates a WAV writer. The RIFF sizes are patched on Close, so w must seek.
func NewWAV(w io.WriteSeeker, format audio.Format) (*WAVWriter, error) {
	enc := wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, 1)
	return &WAVWriter{
		enc:    enc,
		format: format,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

// Write appends interleaved samples to the file
func (w *WAVWriter) Write(samples []int32) error {
	if len(samples)%w.format.Channels != 0 {
		return fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), w.format.Channels)
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(fromSample(s, w.format.BitDepth))
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// Close finalises the RIFF headers
func (w *WAVWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
