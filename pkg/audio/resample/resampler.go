// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Streams float32 chunks with carry-over and converts whole clips to the session format
package resample

import "github.com/resonance-audio/resonance/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates.
// State carries across calls, so consecutive chunks join without seams.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64   // read position in frames, relative to lastFrame when hasLast
	lastFrame  []float32 // final input frame of the previous chunk
	hasLast    bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]float32, channels),
	}
}

// Resample converts interleaved input at inputRate and appends the result at
// outputRate to out, returning the extended slice
func (r *Resampler) Resample(input []float32, out []float32) []float32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return out
	}

	// frame i of the virtual stream is lastFrame (when held) followed by input
	offset := 0
	if r.hasLast {
		offset = 1
	}
	frameAt := func(i, ch int) float32 {
		if i < offset {
			return r.lastFrame[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}
	total := inputFrames + offset

	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := float32(r.position - float64(idx))

		for ch := 0; ch < r.channels; ch++ {
			s1 := frameAt(idx, ch)
			s2 := frameAt(idx+1, ch)
			out = append(out, s1+(s2-s1)*frac)
		}
		r.position += r.ratio
	}

	// Re-anchor on the last input frame for the next chunk
	r.position -= float64(total - 1)
	copy(r.lastFrame, input[(inputFrames-1)*r.channels:])
	r.hasLast = true

	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.hasLast = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputFrames returns how many frames a clip of inputFrames becomes at the output rate
func (r *Resampler) OutputFrames(inputFrames int) int {
	return int(int64(inputFrames) * int64(r.outputRate) / int64(r.inputRate))
}

// Clip converts a decoded buffer to interleaved float32 at sampleRate with
// the given channel count. Mono is duplicated across channels; extra source
// channels beyond the target are dropped, except stereo to mono which averages.
func Clip(buf audio.Buffer, sampleRate, channels int) []float32 {
	src := buf.Format
	frames := buf.Frames()
	if frames == 0 || channels <= 0 {
		return nil
	}

	mapped := make([]float32, frames*channels)
	for f := 0; f < frames; f++ {
		in := buf.Samples[f*src.Channels : (f+1)*src.Channels]
		for ch := 0; ch < channels; ch++ {
			var v float32
			switch {
			case src.Channels == 1:
				v = audio.SampleToFloat(in[0])
			case channels == 1:
				v = (audio.SampleToFloat(in[0]) + audio.SampleToFloat(in[1])) / 2
			case ch < src.Channels:
				v = audio.SampleToFloat(in[ch])
			}
			mapped[f*channels+ch] = v
		}
	}

	if src.SampleRate == sampleRate || src.SampleRate <= 0 {
		return mapped
	}

	r := New(src.SampleRate, sampleRate, channels)
	out := r.Resample(mapped, make([]float32, 0, (r.OutputFrames(frames)+1)*channels))

	// Pad to the exact output length with the final frame
	want := r.OutputFrames(frames)
	for len(out)/channels < want {
		out = append(out, mapped[(frames-1)*channels:]...)
	}
	return out[:want*channels]
}
