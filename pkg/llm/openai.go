package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/andrew/logistics-rag/pkg/models"
)

// OpenAIClient talks to the OpenAI API, or any OpenAI-compatible endpoint,
// via langchaingo.
type OpenAIClient struct {
	llm      *openai.LLM
	embedder *embeddings.EmbedderImpl
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint. The
// apiKey is the single credential the application needs.
func NewOpenAIClient(apiKey, baseURL, chatModel, embedModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	llmClient, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(chatModel),
		openai.WithEmbeddingModel(embedModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llmClient)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIClient{llm: llmClient, embedder: embedder}, nil
}

// callOptions converts a ModelConfig into langchaingo call options.
func callOptions(config ModelConfig) []llms.CallOption {
	var opts []llms.CallOption
	if config.Temperature != 0 {
		opts = append(opts, llms.WithTemperature(float64(config.Temperature)))
	}
	if config.TopP != 0 {
		opts = append(opts, llms.WithTopP(float64(config.TopP)))
	}
	if config.MaxTokens != 0 {
		opts = append(opts, llms.WithMaxTokens(config.MaxTokens))
	}
	return opts
}

// Generate processes a single prompt and returns the completion.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, config ModelConfig) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOptions(config)...)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	return out, nil
}

// Chat processes a conversation and returns the assistant's reply.
func (c *OpenAIClient) Chat(ctx context.Context, messages []models.Message, config ModelConfig) (models.Message, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		var role schema.ChatMessageType
		switch msg.Role {
		case models.RoleSystem:
			role = schema.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = schema.ChatMessageTypeAI
		default:
			role = schema.ChatMessageTypeHuman
		}
		content[i] = llms.TextParts(role, msg.Content)
	}

	resp, err := c.llm.GenerateContent(ctx, content, callOptions(config)...)
	if err != nil {
		return models.Message{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Message{}, fmt.Errorf("openai chat: empty response")
	}

	return models.Message{
		Role:      models.RoleAssistant,
		Content:   resp.Choices[0].Content,
		Timestamp: time.Now(),
	}, nil
}

// EmbedText generates a vector embedding for one text.
func (c *OpenAIClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embedding, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	return embedding, nil
}

// EmbedTexts generates embeddings for a batch of texts.
func (c *OpenAIClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	return vectors, nil
}

// Close cleans up any resources
func (c *OpenAIClient) Close() error {
	return nil
}
