package correct

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicEngine generates corrections with the Messages API.
type AnthropicEngine struct {
	client    anthropic.Client
	maxTokens int64
}

func NewAnthropicEngine(apiKey, baseURL string, maxTokens int) *AnthropicEngine {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 32000
	}
	return &AnthropicEngine{
		client:    anthropic.NewClient(opts...),
		maxTokens: int64(maxTokens),
	}
}

func (e *AnthropicEngine) Name() string { return "anthropic" }

func (e *AnthropicEngine) Generate(ctx context.Context, model, prompt string) (string, error) {
	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (e *AnthropicEngine) ListModels(ctx context.Context) ([]string, error) {
	page, err := e.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("anthropic list models: %w", err)
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
