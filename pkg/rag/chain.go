// Package rag implements the retrieval-augmented generation chain: retrieve
// similar documents from the vector store, build a prompt, and forward it to
// the text-generation provider.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andrew/logistics-rag/pkg/llm"
	"github.com/andrew/logistics-rag/pkg/models"
	"github.com/andrew/logistics-rag/pkg/vector"
)

// ErrEmptyQuestion is returned when Answer is called with a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// promptTemplate interpolates the retrieved context and the question. The
// model is told to stay inside the provided context.
const promptTemplate = `You are an expert logistics and supply chain assistant.
Your job is to answer questions based ONLY on the context provided.

Logistics data context:
%s

User question: %s

Instructions:
1. Answer clearly and professionally.
2. Use ONLY the information from the provided context.
3. If the information is not in the context, say you do not have enough data.
4. When you cite numbers or statistics, mention the source (order, carrier, etc.).

Answer:`

// systemInstructions primes the assistant in interactive chat mode.
const systemInstructions = `You are an expert logistics and supply chain assistant.
Answer questions using only the logistics context you are given.
If the context does not contain the answer, say you do not have enough data.`

// noContext is used when retrieval returns nothing.
const noContext = "No relevant information found."

// ExampleQueries are canned demo questions.
var ExampleQueries = []string{
	"What are the main shipping modes in use?",
	"Which carriers offer the lowest freight rates?",
	"Describe the most common delivery problems.",
	"What are the busiest shipping routes?",
	"Which products sell the most?",
	"Explain the storage cost structure.",
}

// Chain wires the vector store and the LLM into a question-answering
// pipeline. It keeps no state between calls.
type Chain struct {
	store  vector.Store
	client llm.Client
	topK   int
	logger *zap.Logger
}

// NewChain creates a Chain retrieving topK documents per question.
// A nil logger is replaced with a no-op.
func NewChain(store vector.Store, client llm.Client, topK int, logger *zap.Logger) *Chain {
	if topK <= 0 {
		topK = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{store: store, client: client, topK: topK, logger: logger}
}

// FormatContext renders retrieved documents as a single context block.
func FormatContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return noContext
	}

	parts := make([]string, len(results))
	for i, r := range results {
		source := r.Document.Source
		if source == "" {
			source = "unknown"
		}
		parts[i] = fmt.Sprintf("[Document %d - %s]\n%s", i+1, source, r.Document.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// retrieve runs the similarity search for a question.
func (c *Chain) retrieve(ctx context.Context, question string) ([]models.SearchResult, error) {
	results, err := c.store.Query(ctx, question, c.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	c.logger.Debug("retrieved context",
		zap.Int("results", len(results)),
		zap.Int("k", c.topK),
	)
	return results, nil
}

// Answer runs the full RAG pipeline for a single question and returns the
// model's raw response. A blank question returns ErrEmptyQuestion.
func (c *Chain) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	results, err := c.retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(promptTemplate, FormatContext(results), question)

	answer, err := c.client.Generate(ctx, prompt, llm.ModelConfig{
		Temperature: 0.3,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return answer, nil
}

// AnswerWithHistory answers a question in an ongoing conversation. Retrieval
// context rides in as a system message on top of the prior turns; system
// messages from the history itself are dropped so instructions are not
// duplicated.
func (c *Chain) AnswerWithHistory(ctx context.Context, question string, history []models.Message) (models.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Message{}, ErrEmptyQuestion
	}

	results, err := c.retrieve(ctx, question)
	if err != nil {
		return models.Message{}, err
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: systemInstructions, Timestamp: time.Now()},
		{Role: models.RoleSystem, Content: "CONTEXT:\n" + FormatContext(results), Timestamp: time.Now()},
	}
	for _, msg := range history {
		if msg.Role != models.RoleSystem {
			messages = append(messages, msg)
		}
	}
	messages = append(messages, models.Message{
		Role:      models.RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	})

	reply, err := c.client.Chat(ctx, messages, llm.ModelConfig{
		Temperature: 0.3,
		MaxTokens:   2048,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("generating answer: %w", err)
	}
	return reply, nil
}
