// ABOUTME: File sink rendering a session as fast as possible into FLAC or WAV
// ABOUTME: Writes to a .partial file and renames on success; failures remove it
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/encode"
)

// File renders a session into an audio file
type File struct {
	path      string
	format    audio.Format
	frameSize int
	frames    atomic.Int64
}

// NewFile creates a file sink. The container comes from the extension:
// .wav writes WAV, anything else FLAC.
func NewFile(path string, sampleRate, bitDepth, frameSize int) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}
	if frameSize <= 0 {
		frameSize = mixer.DefaultFrameSize
	}

	codec := "flac"
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		codec = "wav"
	}

	return &File{
		path: path,
		format: audio.Format{
			Codec:      codec,
			SampleRate: sampleRate,
			Channels:   2,
			BitDepth:   bitDepth,
		},
		frameSize: frameSize,
	}, nil
}

// Path returns the final output path
func (f *File) Path() string {
	return f.path
}

// Format returns the file format
func (f *File) Format() audio.Format {
	return f.format
}

// Run renders src into the file. Cancelling ctx stops at the next frame
// boundary and still finalises a valid file.
func (f *File) Run(ctx context.Context, src Source) (err error) {
	tmp := f.path + ".partial"
	fh, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if err != nil {
			fh.Close()
			os.Remove(tmp)
		}
	}()

	w, err := encode.NewFile(fh, f.format)
	if err != nil {
		return err
	}

	buf := mixer.NewBuffer(f.frameSize)
	samples := make([]int32, len(buf))
	for ctx.Err() == nil {
		n := src.Render(buf)
		if n == 0 {
			break
		}
		for i := 0; i < n*2; i++ {
			samples[i] = audio.FloatToSample(buf[i])
		}
		if err = w.Write(samples[:n*2]); err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}
		f.frames.Add(int64(n))
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finalise %s: %w", f.format.Codec, err)
	}
	if err = fh.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Frames returns how many frames have been encoded
func (f *File) Frames() int64 {
	return f.frames.Load()
}
