// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the sample domain shared by the engine, codecs and devices.
//
// The mixer works in interleaved float32 in [-1,1]. Codecs work in int32 samples
// left-justified in the 24-bit range, so 16-bit and 24-bit material share one path:
//   - Format: codec, sample rate, channels, bit depth
//   - Buffer: decoded PCM with its format
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "flac",
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   24,
//	}
//
//	sample := audio.FloatToSample(0.25)
package audio
