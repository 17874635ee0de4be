// Package correct sends raw transcripts through an LLM for correction and
// structuring, then applies the dictionary and speaker passes.
package correct

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

// Engine is a text-in, text-out LLM backend.
type Engine interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Name() string // short id used in the engine label, e.g. "gemini"
}

var rateLimitMarkers = []string{
	"429",
	"resourceexhausted",
	"resource_exhausted",
	"quota",
	"rate limit",
	"rate_limit",
}

// IsRateLimit reports whether err is a rate-limit or quota failure, either by
// status code on a typed SDK error or by a known marker in the message.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) && oaiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) && antErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
