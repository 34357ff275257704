// ABOUTME: Output sinks pulling mixed frames to a live device or an encoded file
// ABOUTME: Both sinks pull whole mixer frames, so identical sources give identical audio
package sink

import (
	"context"

	"github.com/resonance-audio/resonance/internal/mixer"
)

// Source produces mixed frames; Render returns 0 once the session has ended
type Source interface {
	Render(buf mixer.Buffer) int
}

// Sink drives a source to completion
type Sink interface {
	// Run pulls from src until it ends or ctx is cancelled
	Run(ctx context.Context, src Source) error

	// Frames returns how many frames have been delivered so far
	Frames() int64
}
