// ABOUTME: FLAC file writer
// ABOUTME: Encodes int32 samples into a FLAC stream with verbatim and constant subframes
package encode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/resonance-audio/resonance/pkg/audio"
)

// FLACBlockSize is the number of frames per FLAC block
const FLACBlockSize = 4096

// FLACWriter encodes PCM audio to FLAC
type FLACWriter struct {
	enc      *flac.Encoder
	format   audio.Format
	channels [][]int32
	blockNum uint64
}

// NewFLAC creates a FLAC writer. Stream info totals are patched on Close when w can seek.
func NewFLAC(w io.Writer, format audio.Format) (*FLACWriter, error) {
	if format.Channels < 1 || format.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count for FLAC: %d", format.Channels)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  FLACBlockSize,
		SampleRate:    uint32(format.SampleRate),
		NChannels:     uint8(format.Channels),
		BitsPerSample: uint8(format.BitDepth),
	}

	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac encoder: %w", err)
	}

	channels := make([][]int32, format.Channels)
	for ch := range channels {
		channels[ch] = make([]int32, 0, FLACBlockSize)
	}

	return &FLACWriter{
		enc:      enc,
		format:   format,
		channels: channels,
	}, nil
}

// Write deinterleaves samples and emits every full block
func (w *FLACWriter) Write(samples []int32) error {
	nch := w.format.Channels
	if len(samples)%nch != 0 {
		return fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), nch)
	}

	for i := 0; i < len(samples); i += nch {
		for ch := 0; ch < nch; ch++ {
			w.channels[ch] = append(w.channels[ch], fromSample(samples[i+ch], w.format.BitDepth))
		}
		if len(w.channels[0]) == FLACBlockSize {
			if err := w.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close writes the final short block and finalises the stream
func (w *FLACWriter) Close() error {
	if len(w.channels[0]) > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("failed to close flac encoder: %w", err)
	}
	return nil
}

func (w *FLACWriter) flush() error {
	n := len(w.channels[0])

	layout := frame.ChannelsMono
	if w.format.Channels == 2 {
		layout = frame.ChannelsLR
	}

	subframes := make([]*frame.Subframe, w.format.Channels)
	for ch := range subframes {
		block := make([]int32, n)
		copy(block, w.channels[ch])

		pred := frame.PredVerbatim
		if isConstant(block) {
			pred = frame.PredConstant
		}

		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: pred},
			Samples:   block,
			NSamples:  n,
		}
		w.channels[ch] = w.channels[ch][:0]
	}

	f := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(n),
			SampleRate:        uint32(w.format.SampleRate),
			Channels:          layout,
			BitsPerSample:     uint8(w.format.BitDepth),
			Num:               w.blockNum,
		},
		Subframes: subframes,
	}

	if err := w.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("failed to write flac frame %d: %w", w.blockNum, err)
	}
	w.blockNum++
	return nil
}

func isConstant(block []int32) bool {
	for _, s := range block[1:] {
		if s != block[0] {
			return false
		}
	}
	return true
}
