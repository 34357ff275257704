// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-model Output interface with oto, malgo and headless backends
// Package output provides audio playback backends.
//
// Devices pull audio: the engine implements Source and the backend calls
// ReadSamples whenever it needs more frames, so the device clock paces the
// session. Backends:
//   - Oto: portable default, float32 through an oto player
//   - Malgo: miniaudio with named device selection
//   - Headless: no hardware, optionally paced to wall-clock time
//
// Example:
//
//	out := output.NewMalgo("")
//	err := out.Open(44100, 2)
//	err = out.Play(engine)
package output
