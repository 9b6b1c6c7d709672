// Package llm implements a reviewer and rewriter backed by a hosted
// language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/colonyops/refinery/internal/core/config"
)

var (
	// ErrMissingAPIKey is returned when the provider's key variable is unset.
	ErrMissingAPIKey = errors.New("api key not set")
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty model response")
)

// Client sends a single prompt and returns the model's text answer.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Params are the generation settings shared by all providers.
type Params struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewClient builds the client for cfg.Provider, reading the API key from
// the environment variable named by cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, cfg.APIKeyEnv)
	}

	params := Params{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, key, params)
	case config.ProviderOpenAI:
		return NewOpenAIClient(key, cfg.BaseURL, params), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
