// ABOUTME: Encoder interface definitions
// ABOUTME: Packet encoders for streaming and file writers for rendered sessions
package encode

import (
	"fmt"
	"io"

	"github.com/resonance-audio/resonance/pkg/audio"
)

// Encoder encodes PCM int32 samples to wire packets
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int32) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// FileWriter streams PCM int32 samples into an audio container
type FileWriter interface {
	// Write appends interleaved samples; len(samples) must be a whole number of frames
	Write(samples []int32) error

	// Close flushes buffered audio and finalises the container headers
	Close() error
}

// NewFile creates a container writer for the format's codec ("flac" or "wav")
func NewFile(w io.WriteSeeker, format audio.Format) (FileWriter, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid format: %dHz, %d channels", format.SampleRate, format.Channels)
	}

	switch format.Codec {
	case "flac":
		fw, err := NewFLAC(w, format)
		if err != nil {
			return nil, err
		}
		return fw, nil
	case "wav":
		ww, err := NewWAV(w, format)
		if err != nil {
			return nil, err
		}
		return ww, nil
	default:
		return nil, fmt.Errorf("unsupported file codec: %s", format.Codec)
	}
}

// fromSample narrows a 24-bit range sample to the target bit depth
func fromSample(sample int32, bitDepth int) int32 {
	if bitDepth == 16 {
		return int32(audio.SampleToInt16(sample))
	}
	return sample
}
