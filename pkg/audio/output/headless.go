// ABOUTME: Headless audio output for tests and machines without a sound card
// ABOUTME: Pulls from the source either as fast as possible or paced to wall-clock time
package output

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// headlessFramesPerRead matches a typical device period
const headlessFramesPerRead = 512

// Headless output discards audio (or copies it to a writer) without touching hardware
type Headless struct {
	paced      bool
	sink       io.Writer
	sampleRate int
	channels   int
	frames     int64
	ready      bool
}

// NewHeadless creates a headless output. When paced is set, Play consumes
// audio no faster than real time. sink may be nil.
func NewHeadless(paced bool, sink io.Writer) *Headless {
	return &Headless{paced: paced, sink: sink}
}

// Open records the stream format
func (h *Headless) Open(sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid format: %dHz, %d channels", sampleRate, channels)
	}
	h.sampleRate = sampleRate
	h.channels = channels
	h.ready = true
	return nil
}

// Play pulls src to completion
func (h *Headless) Play(src Source) error {
	if !h.ready {
		return fmt.Errorf("output not initialized")
	}

	buf := make([]float32, headlessFramesPerRead*h.channels)
	var scratch []byte
	start := time.Now()

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			h.frames += int64(n / h.channels)
			if h.sink != nil {
				scratch = floatsToBytes(buf[:n], scratch)
				if _, werr := h.sink.Write(scratch); werr != nil {
					return fmt.Errorf("headless sink write failed: %w", werr)
				}
			}
			if h.paced {
				due := start.Add(time.Duration(h.frames) * time.Second / time.Duration(h.sampleRate))
				if wait := time.Until(due); wait > 0 {
					time.Sleep(wait)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("source read failed: %w", err)
		}
	}
}

// Frames returns how many frames have been consumed
func (h *Headless) Frames() int64 {
	return h.frames
}

// Close releases output resources
func (h *Headless) Close() error {
	h.ready = false
	return nil
}
