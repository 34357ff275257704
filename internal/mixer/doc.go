// ABOUTME: Mixer package documentation
// ABOUTME: Describes the layer order and gain staging of a rendered frame
// Package mixer renders interleaved stereo float32 frames for a session.
//
// Each sample is produced in a fixed order:
//   - carrier tone, binaural on the right channel when configured
//   - amplitude, scaled by the breath envelope and the isochronic gate
//   - bilateral pan gains, optionally narrowed by the breath envelope
//   - speech from the affirmation scheduler at a separate fixed gain
//   - session fade-in and fade-out, then the soft limiter
//
// Every layer is a pure function of the sample index, so any block size
// produces the same samples.
package mixer
