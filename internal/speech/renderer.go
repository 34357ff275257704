// ABOUTME: Text-to-speech capability interface
// ABOUTME: Adapters turn (voice, text) into decoded PCM; the engine never sees the backend
package speech

import (
	"context"

	"github.com/resonance-audio/resonance/pkg/audio"
)

// Renderer turns text into speech audio. Implementations may be slow and may fail.
type Renderer interface {
	Render(ctx context.Context, voice, text string) (audio.Buffer, error)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(ctx context.Context, voice, text string) (audio.Buffer, error)

// Render implements Renderer
func (f RendererFunc) Render(ctx context.Context, voice, text string) (audio.Buffer, error) {
	return f(ctx, voice, text)
}
