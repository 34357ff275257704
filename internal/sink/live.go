// ABOUTME: Live sink feeding an audio device through the pull-model output interface
// ABOUTME: The device callback renders whole frames on demand and checks cancellation between them
package sink

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/resonance-audio/resonance/internal/mixer"
	"github.com/resonance-audio/resonance/pkg/audio/output"
)

// Live plays a session on an output device
type Live struct {
	out        output.Output
	sampleRate int
	frameSize  int
	frames     atomic.Int64
}

// NewLive creates a live sink on out
func NewLive(out output.Output, sampleRate, frameSize int) *Live {
	if frameSize <= 0 {
		frameSize = mixer.DefaultFrameSize
	}
	return &Live{out: out, sampleRate: sampleRate, frameSize: frameSize}
}

// Run opens the device and plays src until it ends or ctx is cancelled
func (l *Live) Run(ctx context.Context, src Source) error {
	if err := l.out.Open(l.sampleRate, 2); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer l.out.Close()

	p := &puller{
		ctx:    ctx,
		src:    src,
		buf:    mixer.NewBuffer(l.frameSize),
		frames: &l.frames,
	}
	if err := l.out.Play(p); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// Frames returns how many frames have been handed to the device
func (l *Live) Frames() int64 {
	return l.frames.Load()
}

// puller adapts a Source to output.Source, rendering one mixer frame at a time
type puller struct {
	ctx     context.Context
	src     Source
	buf     mixer.Buffer
	pending []float32
	done    bool
	frames  *atomic.Int64
}

// ReadSamples implements output.Source
func (p *puller) ReadSamples(dst []float32) (int, error) {
	written := 0
	for written < len(dst) {
		if len(p.pending) == 0 {
			if p.done {
				break
			}
			if p.ctx.Err() != nil {
				p.done = true
				break
			}
			n := p.src.Render(p.buf)
			if n == 0 {
				p.done = true
				break
			}
			p.pending = p.buf[:n*2]
			p.frames.Add(int64(n))
		}
		c := copy(dst[written:], p.pending)
		p.pending = p.pending[c:]
		written += c
	}

	if written == 0 && p.done {
		return 0, io.EOF
	}
	return written, nil
}
