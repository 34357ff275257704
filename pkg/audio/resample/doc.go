// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts clips and streams between sample rates and channel layouts
// Package resample provides audio sample rate conversion.
//
// Clip brings a decoded speech clip into the session's float32 format in one
// call. Resampler handles continuous streams chunk by chunk, such as feeding
// a 44.1kHz session into a 48kHz Opus encoder.
//
// Example:
//
//	samples := resample.Clip(buf, 44100, 2)
//
//	r := resample.New(44100, 48000, 2)
//	out = r.Resample(chunk, out[:0])
package resample
