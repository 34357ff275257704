// ABOUTME: Audio encoder package for session output
// ABOUTME: Provides packet encoders (PCM, Opus) and file writers (FLAC, WAV)
// Package encode turns int32 samples in the 24-bit range into bytes.
//
// Packet encoders feed the listen-along stream. File writers persist a
// rendered session and are selected by codec through NewFile.
//
// Example:
//
//	w, err := encode.NewFile(f, audio.Format{Codec: "flac", SampleRate: 44100, Channels: 2, BitDepth: 24})
//	err = w.Write(samples)
//	err = w.Close()
package encode
