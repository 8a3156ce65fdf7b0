// Package vector manages the persistent vector index. Embedding computation
// and similarity search are delegated to the external provider and store.
package vector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/andrew/logistics-rag/pkg/config"
	"github.com/andrew/logistics-rag/pkg/models"
)

// ErrNoDocuments is returned when an indexing run is given nothing to index.
var ErrNoDocuments = errors.New("no documents to index")

// Embedder computes embeddings via the external provider. llm.Client
// satisfies it.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store defines the interface for vector database operations.
type Store interface {
	// Index embeds the documents and upserts them into the store, returning
	// the number indexed. The whole batch is embedded before anything is
	// written: an embedding failure aborts with no partial update.
	Index(ctx context.Context, docs []models.Document) (int, error)

	// Query embeds the text with the same provider and returns the k nearest
	// documents ranked by similarity.
	Query(ctx context.Context, text string, k int) ([]models.SearchResult, error)

	// Count reports how many documents the store holds.
	Count(ctx context.Context) (int, error)

	// Close releases resources used by the store.
	Close() error
}

// NewStore creates the vector store backend selected by the configuration.
func NewStore(cfg *config.Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.VectorStore {
	case config.StoreChromem:
		return NewChromemStore(cfg.StoreDir, cfg.Collection, embedder, logger)
	case config.StoreQdrant:
		return NewQdrantStore(cfg.QdrantAddr, cfg.Collection, embedder, logger)
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
}
