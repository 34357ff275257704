// ABOUTME: Audio decoder package for whole-clip decoding
// ABOUTME: Provides Decoder interface and implementations for WAV, FLAC, MP3 and raw PCM
// Package decode turns complete encoded clips into PCM buffers.
//
// Supports: WAV, FLAC, MP3, raw PCM (16-bit and 24-bit)
//
// All decoders implement the Decoder interface and output int32 samples
// in 24-bit range alongside the clip's native format. Speech engines hand
// back whatever container they like, so Clip sniffs the magic bytes first.
//
// Example:
//
//	buf, err := decode.Clip(data, audio.Format{SampleRate: 24000, Channels: 1, BitDepth: 16})
package decode
