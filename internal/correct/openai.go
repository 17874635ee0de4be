package correct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// OpenAIEngine talks to any chat-completions endpoint: OpenAI itself, or
// Gemini through its OpenAI-compatible surface.
type OpenAIEngine struct {
	client    *openai.Client
	name      string
	maxTokens int
}

// NewOpenAIEngine builds an engine. name labels the backend in records
// ("gemini", "openai").
func NewOpenAIEngine(name, apiKey, baseURL string, maxTokens int) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &OpenAIEngine{
		client:    openai.NewClientWithConfig(cfg),
		name:      name,
		maxTokens: maxTokens,
	}
}

func (e *OpenAIEngine) Name() string { return e.name }

func (e *OpenAIEngine) Generate(ctx context.Context, model, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: strings.TrimPrefix(model, "models/"),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if e.maxTokens > 0 {
		req.MaxTokens = e.maxTokens
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s chat completion (status %d): %w", e.name, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s chat completion: %w", e.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no choices returned", e.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	list, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s list models: %w", e.name, err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
