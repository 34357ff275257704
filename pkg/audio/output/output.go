// ABOUTME: Audio output interface definition
// ABOUTME: Pull-model playback where the device asks the engine for frames
package output

import (
	"encoding/binary"
	"io"
	"math"
)

// Source supplies interleaved float32 samples on demand
type Source interface {
	// ReadSamples fills dst with whole frames and returns the sample count.
	// It returns io.EOF once the stream has ended.
	ReadSamples(dst []float32) (int, error)
}

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Play pulls from src until it reports io.EOF and the device has drained
	Play(src Source) error

	// Close releases output resources
	Close() error
}

// sourceReader adapts a Source to an io.Reader of float32 little-endian bytes
type sourceReader struct {
	src     Source
	scratch []float32
	pending []byte
	eof     bool
}

func newSourceReader(src Source, channels, framesPerRead int) *sourceReader {
	return &sourceReader{
		src:     src,
		scratch: make([]float32, channels*framesPerRead),
	}
}

// Read implements io.Reader
func (r *sourceReader) Read(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if len(r.pending) == 0 {
			if r.eof {
				break
			}
			n, err := r.src.ReadSamples(r.scratch)
			if n > 0 {
				r.pending = floatsToBytes(r.scratch[:n], r.pending[:0])
			}
			if err == io.EOF {
				r.eof = true
			} else if err != nil {
				return written, err
			}
			if n == 0 {
				continue
			}
		}
		c := copy(p[written:], r.pending)
		r.pending = r.pending[c:]
		written += c
	}

	if written == 0 && r.eof {
		return 0, io.EOF
	}
	return written, nil
}

// floatsToBytes appends samples to out as float32 little-endian
func floatsToBytes(samples []float32, out []byte) []byte {
	need := len(samples) * 4
	if cap(out) < need {
		out = make([]byte, need)
	}
	out = out[:need]
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
