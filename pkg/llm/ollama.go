package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/andrew/logistics-rag/pkg/models"
)

// OllamaClient talks to a local Ollama server for both embeddings and text
// generation.
type OllamaClient struct {
	client     *api.Client
	chatModel  string
	embedModel string
}

// NewOllamaClient creates a client for the Ollama server at host.
func NewOllamaClient(host, chatModel, embedModel string) (*OllamaClient, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	httpClient := &http.Client{
		// Generations on CPU can take a while.
		Timeout: 5 * time.Minute,
	}

	return &OllamaClient{
		client:     api.NewClient(u, httpClient),
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

// options converts a ModelConfig into Ollama request options.
func options(config ModelConfig) map[string]any {
	opts := map[string]any{}
	if config.Temperature != 0 {
		opts["temperature"] = config.Temperature
	}
	if config.TopP != 0 {
		opts["top_p"] = config.TopP
	}
	if config.MaxTokens != 0 {
		opts["num_predict"] = config.MaxTokens
	}
	return opts
}

// Generate processes a single prompt and returns the full completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, config ModelConfig) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.chatModel,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options(config),
	}

	var out strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.String(), nil
}

// Chat processes a conversation and returns the assistant's reply.
func (c *OllamaClient) Chat(ctx context.Context, messages []models.Message, config ModelConfig) (models.Message, error) {
	apiMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		apiMessages[i] = api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.chatModel,
		Messages: apiMessages,
		Stream:   &stream,
		Options:  options(config),
	}

	var out strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("ollama chat: %w", err)
	}

	return models.Message{
		Role:      models.RoleAssistant,
		Content:   out.String(),
		Timestamp: time.Now(),
	}, nil
}

// EmbedText generates a vector embedding for one text.
func (c *OllamaClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedTexts generates embeddings for a batch of texts.
func (c *OllamaClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	req := &api.EmbedRequest{
		Model: c.embedModel,
		Input: texts,
	}

	resp, err := c.client.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Close cleans up any resources
func (c *OllamaClient) Close() error {
	// No cleanup needed for HTTP client
	return nil
}
