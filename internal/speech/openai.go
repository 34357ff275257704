// ABOUTME: Renderer backed by the OpenAI speech endpoint
// ABOUTME: Requests WAV so the response decodes without extra codecs
package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/decode"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRenderer renders speech with the OpenAI TTS API
type OpenAIRenderer struct {
	client *openai.Client
	model  openai.SpeechModel
	speed  float64
}

// NewOpenAIRenderer creates a renderer. baseURL may be empty for the public API.
func NewOpenAIRenderer(apiKey, baseURL, model string, speed float64) *OpenAIRenderer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAIRenderer{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.SpeechModel(model),
		speed:  speed,
	}
}

// Render implements Renderer
func (o *OpenAIRenderer) Render(ctx context.Context, voice, text string) (audio.Buffer, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          o.speed,
	})
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("openai speech request: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("read openai speech: %w", err)
	}

	return decode.Clip(data, audio.Format{SampleRate: 24000, Channels: 1, BitDepth: 16})
}
