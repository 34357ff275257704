// ABOUTME: Offline stand-in renderer producing a short chime per utterance
// ABOUTME: Used for demos without a speech engine and for deterministic tests
package speech

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/resonance-audio/resonance/pkg/audio"
)

// ToneRenderer renders each utterance as a soft chime. Pitch is derived from
// the voice, length from the word count.
type ToneRenderer struct {
	SampleRate int           // output rate; differs from the session rate to exercise resampling
	PerWord    time.Duration // chime length per word
	Delay      time.Duration // simulated engine latency
	FailText   map[string]bool
}

// NewToneRenderer creates a tone renderer with defaults
func NewToneRenderer() *ToneRenderer {
	return &ToneRenderer{
		SampleRate: 24000,
		PerWord:    250 * time.Millisecond,
	}
}

// Render implements Renderer
func (r *ToneRenderer) Render(ctx context.Context, voice, text string) (audio.Buffer, error) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return audio.Buffer{}, ctx.Err()
		}
	}
	if r.FailText[text] {
		return audio.Buffer{}, fmt.Errorf("tone renderer refused %q", text)
	}

	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	length := time.Duration(words) * r.PerWord
	frames := int(int64(length) * int64(r.SampleRate) / int64(time.Second))

	h := fnv.New32a()
	h.Write([]byte(voice))
	freq := 330 + float64(h.Sum32()%220)

	samples := make([]int32, frames)
	for i := range samples {
		secs := float64(i) / float64(r.SampleRate)
		decay := math.Exp(-3 * secs / length.Seconds())
		v := 0.4 * decay * math.Sin(2*math.Pi*freq*secs)
		samples[i] = audio.FloatToSample(float32(v))
	}

	return audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "pcm",
			SampleRate: r.SampleRate,
			Channels:   1,
			BitDepth:   24,
		},
	}, nil
}
