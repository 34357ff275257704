// ABOUTME: Session error taxonomy
// ABOUTME: Configuration and fatal device/encode errors surface from Run; render timeouts are absorbed
package session

import (
	"fmt"

	"github.com/resonance-audio/resonance/internal/speech"
)

// ConfigurationError rejects a session before any audio is produced
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// RenderTimeout records a clip that was not ready at its cue. It is logged and
// counted, never returned from Run.
type RenderTimeout struct {
	Key     speech.Key
	Ordinal int64
	Status  speech.Status
	Err     error // render failure, nil when the render was merely late
}

func (e *RenderTimeout) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("utterance %d (%s) not ready: %v", e.Ordinal, e.Key.Voice, e.Err)
	}
	return fmt.Sprintf("utterance %d (%s) not ready: %s", e.Ordinal, e.Key.Voice, e.Status)
}

func (e *RenderTimeout) Unwrap() error {
	return e.Err
}

// DeviceError is a fatal live output failure
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %v", e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// EncodeError is a fatal file output failure; the partial file has been removed
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
