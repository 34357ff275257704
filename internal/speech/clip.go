// ABOUTME: Speech clip types shared by the cache, render pool and scheduler
// ABOUTME: Converts rendered audio into faded stereo float32 at the session rate
package speech

import (
	"math"
	"time"

	"github.com/resonance-audio/resonance/internal/synth"
	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/resample"
)

// ClipFadeSeconds is the raised-cosine fade applied to both ends of every clip
const ClipFadeSeconds = 0.005

// Key identifies a clip. Repeated phrases share one render.
type Key struct {
	Voice string
	Text  string
}

// Status reports where a key is in its render lifecycle
type Status int

const (
	Missing Status = iota
	Pending
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Missing:
		return "missing"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Clip is a rendered utterance ready for mixing
type Clip struct {
	Key      Key
	Samples  []float32 // interleaved stereo at the session rate
	Frames   int
	Duration time.Duration
}

// NewClip converts a decoded buffer to stereo at sampleRate and fades its edges
func NewClip(key Key, buf audio.Buffer, sampleRate int) *Clip {
	samples := resample.Clip(buf, sampleRate, 2)
	frames := len(samples) / 2
	applyFades(samples, fadeFrames(sampleRate, frames))

	return &Clip{
		Key:      key,
		Samples:  samples,
		Frames:   frames,
		Duration: time.Duration(int64(frames) * int64(time.Second) / int64(sampleRate)),
	}
}

// fadeFrames sizes the edge fade, never shorter than the click bound allows
// and never more than half the clip
func fadeFrames(sampleRate, frames int) int {
	n := int(math.Round(ClipFadeSeconds * float64(sampleRate)))
	if minRamp := synth.MinRampSamples(); n < minRamp {
		n = minRamp
	}
	if n > frames/2 {
		n = frames / 2
	}
	return n
}

func applyFades(samples []float32, fade int) {
	frames := len(samples) / 2
	for i := 0; i < fade; i++ {
		g := float32(synth.RaisedCosine(float64(i) / float64(fade)))
		samples[i*2] *= g
		samples[i*2+1] *= g
		tail := frames - 1 - i
		samples[tail*2] *= g
		samples[tail*2+1] *= g
	}
}
