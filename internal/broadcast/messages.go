// ABOUTME: Listen-along wire messages
// ABOUTME: JSON control envelopes plus the binary audio chunk framing
package broadcast

import (
	"encoding/binary"
	"fmt"
)

// ProtocolVersion is sent in the server hello
const ProtocolVersion = 1

// AudioChunkMessageType tags binary audio frames
const AudioChunkMessageType = 1

// chunkHeader is the type byte plus a big-endian timestamp
const chunkHeader = 1 + 8

// Message wraps every JSON control message
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ServerHello greets a new listener
type ServerHello struct {
	ServerID string `json:"server_id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// StreamStart describes the audio that follows
type StreamStart struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// StreamEnd tells listeners the session is over
type StreamEnd struct {
	Reason string `json:"reason"`
}

// CreateAudioChunk frames encoded audio with its stream timestamp in microseconds
func CreateAudioChunk(timestamp int64, audioData []byte) []byte {
	chunk := make([]byte, chunkHeader+len(audioData))
	chunk[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(chunk[1:chunkHeader], uint64(timestamp))
	copy(chunk[chunkHeader:], audioData)
	return chunk
}

// ParseAudioChunk splits a binary chunk into timestamp and payload
func ParseAudioChunk(chunk []byte) (int64, []byte, error) {
	if len(chunk) < chunkHeader {
		return 0, nil, fmt.Errorf("audio chunk too short: %d bytes", len(chunk))
	}
	if chunk[0] != AudioChunkMessageType {
		return 0, nil, fmt.Errorf("unexpected chunk type %d", chunk[0])
	}
	return int64(binary.BigEndian.Uint64(chunk[1:chunkHeader])), chunk[chunkHeader:], nil
}
