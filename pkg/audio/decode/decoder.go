// ABOUTME: Decoder interface definition and container sniffing
// ABOUTME: Picks a clip decoder from the leading bytes of encoded audio
package decode

import (
	"bytes"
	"fmt"

	"github.com/resonance-audio/resonance/pkg/audio"
)

// Decoder decodes a complete encoded clip to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) (audio.Buffer, error)

	// Close releases decoder resources
	Close() error
}

// Sniff returns the codec name for encoded data based on its magic bytes.
// Unrecognised data reports "pcm".
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return "flac"
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return "mp3"
	default:
		return "pcm"
	}
}

// New creates a decoder for the specified format
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "wav":
		return NewWAV(format)
	case "mp3":
		return NewMP3(format)
	case "flac":
		return NewFLAC(format)
	case "pcm":
		return NewPCM(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}

// Clip sniffs and decodes a complete clip. fallback describes raw PCM input
// and is only consulted when the data carries no container header.
func Clip(data []byte, fallback audio.Format) (audio.Buffer, error) {
	format := fallback
	format.Codec = Sniff(data)

	decoder, err := New(format)
	if err != nil {
		return audio.Buffer{}, err
	}
	defer decoder.Close()

	buf, err := decoder.Decode(data)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("decode %s clip: %w", format.Codec, err)
	}
	return buf, nil
}

// scaleTo24 left-justifies a sample of the given bit depth in the 24-bit range
func scaleTo24(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}
