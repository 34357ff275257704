// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams float32 PCM from a pull Source through an oto player
package output

import (
	"fmt"
	"log"
	"time"

	"github.com/ebitengine/oto/v3"
)

// otoFramesPerRead is how many frames the oto reader pulls from the source at once
const otoFramesPerRead = 1024

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	channels   int
	bufferSize time.Duration
	ready      bool
}

// NewOto creates a new Oto output. bufferSize bounds device latency; zero uses oto's default.
func NewOto(bufferSize time.Duration) *Oto {
	return &Oto{bufferSize: bufferSize}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		log.Printf("Audio output already initialized with same format, reusing context")
		return nil
	}

	// oto only allows one context per process
	if o.otoCtx != nil {
		return fmt.Errorf("oto context already open at %dHz %dch, cannot reopen at %dHz %dch",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   o.bufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels
	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (oto)", sampleRate, channels)

	return nil
}

// Play streams src until it ends and the player has drained
func (o *Oto) Play(src Source) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	reader := newSourceReader(src, o.channels, otoFramesPerRead)
	o.player = o.otoCtx.NewPlayer(reader)
	defer func() {
		o.player.Close()
		o.player = nil
	}()

	o.player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if err := o.player.Err(); err != nil {
			return fmt.Errorf("oto playback failed: %w", err)
		}
		if !o.player.IsPlaying() {
			break
		}
	}

	return o.player.Err()
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.otoCtx != nil && o.ready {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
		o.ready = false
	}
	return nil
}
