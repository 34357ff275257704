// ABOUTME: Encodes mixer frames into fixed 20ms broadcast chunks
// ABOUTME: Opus is resampled to 48kHz; PCM goes out at the session rate as 16-bit
package broadcast

import (
	"fmt"

	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/encode"
	"github.com/resonance-audio/resonance/pkg/audio/resample"
)

const (
	CodecOpus = "opus"
	CodecPCM  = "pcm"

	// OpusSampleRate is the rate every Opus stream is encoded at
	OpusSampleRate = 48000

	channels        = 2
	chunkDurationMs = 20
)

// stream turns arbitrary-sized stereo float frames into timestamped chunks
type stream struct {
	format    audio.Format
	encoder   encode.Encoder
	resampler *resample.Resampler

	chunkFrames int
	pending     []float32
	scratch     []float32
	samples     []int32
	position    int64 // frames emitted at format.SampleRate
}

func newStream(codec string, sampleRate int) (*stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	s := &stream{}
	switch codec {
	case CodecOpus:
		s.format = audio.Format{Codec: CodecOpus, SampleRate: OpusSampleRate, Channels: channels, BitDepth: 16}
		enc, err := encode.NewOpus(s.format)
		if err != nil {
			return nil, err
		}
		s.encoder = enc
		s.chunkFrames = enc.FrameSize()
		if sampleRate != OpusSampleRate {
			s.resampler = resample.New(sampleRate, OpusSampleRate, channels)
		}
	case CodecPCM:
		s.format = audio.Format{Codec: CodecPCM, SampleRate: sampleRate, Channels: channels, BitDepth: 16}
		enc, err := encode.NewPCM(s.format)
		if err != nil {
			return nil, err
		}
		s.encoder = enc
		s.chunkFrames = sampleRate * chunkDurationMs / 1000
		if s.chunkFrames == 0 {
			s.chunkFrames = 1
		}
	default:
		return nil, fmt.Errorf("unsupported broadcast codec: %s", codec)
	}

	s.samples = make([]int32, s.chunkFrames*channels)
	return s, nil
}

// Start describes the stream for new listeners
func (s *stream) Start() StreamStart {
	return StreamStart{
		Codec:      s.format.Codec,
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		BitDepth:   s.format.BitDepth,
	}
}

// push appends one mixer frame and returns every chunk it completes
func (s *stream) push(frame []float32) ([][]byte, error) {
	if s.resampler != nil {
		s.scratch = s.resampler.Resample(frame, s.scratch[:0])
		s.pending = append(s.pending, s.scratch...)
	} else {
		s.pending = append(s.pending, frame...)
	}

	var chunks [][]byte
	need := s.chunkFrames * channels
	for len(s.pending) >= need {
		for i, v := range s.pending[:need] {
			s.samples[i] = audio.FloatToSample(v)
		}
		data, err := s.encoder.Encode(s.samples)
		if err != nil {
			return chunks, err
		}
		ts := s.position * 1_000_000 / int64(s.format.SampleRate)
		chunks = append(chunks, CreateAudioChunk(ts, data))
		s.position += int64(s.chunkFrames)

		n := copy(s.pending, s.pending[need:])
		s.pending = s.pending[:n]
	}
	return chunks, nil
}

func (s *stream) Close() error {
	return s.encoder.Close()
}
