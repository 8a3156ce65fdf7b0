// Package llm wraps the external embedding and text-generation providers
// behind a single client interface.
package llm

import (
	"context"
	"fmt"

	"github.com/andrew/logistics-rag/pkg/config"
	"github.com/andrew/logistics-rag/pkg/models"
)

// Client is the interface for interacting with LLM providers.
type Client interface {
	// Generate processes a single prompt and returns a completion.
	Generate(ctx context.Context, prompt string, config ModelConfig) (string, error)

	// Chat processes a conversation and returns the assistant's reply.
	Chat(ctx context.Context, messages []models.Message, config ModelConfig) (models.Message, error)

	// EmbedText generates a vector embedding for one text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for a batch of texts, one vector per
	// input in the same order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases resources held by the client.
	Close() error
}

// ModelConfig holds generation parameters.
type ModelConfig struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultModelConfig returns a default configuration.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   2048,
	}
}

// NewClient creates the provider selected by the configuration.
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaHost, cfg.ChatModel, cfg.EmbeddingModel)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
