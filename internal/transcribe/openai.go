package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider transcribes through the OpenAI audio API, or any server
// exposing the same /v1/audio/transcriptions contract.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider. An empty baseURL targets api.openai.com.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath string, opts Options) (*Response, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       p.model,
		FilePath:    audioPath,
		Prompt:      opts.Prompt,
		Language:    opts.Language,
		Temperature: float32(opts.Temperature),
		Format:      openai.AudioResponseFormatText,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai transcription (status %d): %w", apiErr.HTTPStatusCode, err)
		}
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return &Response{
		Text:     strings.TrimSpace(resp.Text),
		Language: opts.Language,
	}, nil
}
