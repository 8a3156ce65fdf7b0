package vector

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/andrew/logistics-rag/pkg/models"
)

// ChromemStore is the default Store implementation, backed by chromem-go's
// embedded persistent database. The store directory layout is owned entirely
// by chromem.
type ChromemStore struct {
	db         *chromem.DB
	collection string
	embedder   Embedder
	logger     *zap.Logger
}

// NewChromemStore opens (or creates) a persistent chromem database under dir.
// A nil logger is replaced with a no-op.
func NewChromemStore(dir, collection string, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}

	logger.Info("chromem store opened",
		zap.String("dir", dir),
		zap.String("collection", collection),
	)

	return &ChromemStore{
		db:         db,
		collection: collection,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// embeddingFunc routes chromem's query-time embedding through our provider.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedText(ctx, text)
	}
}

// Index embeds all documents first and only then writes them, so an
// embedding failure leaves the store untouched. Documents with the same ID
// replace their previous record.
func (s *ChromemStore) Index(ctx context.Context, docs []models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, ErrNoDocuments
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding documents: %w", err)
	}

	collection, err := s.db.GetOrCreateCollection(s.collection, nil, s.embeddingFunc())
	if err != nil {
		return 0, fmt.Errorf("getting collection %s: %w", s.collection, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		metadata := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["source"] = doc.Source

		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  metadata,
			Embedding: embeddings[i],
		}
	}

	// Embeddings are precomputed, so no concurrency is needed here.
	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return 0, fmt.Errorf("adding documents: %w", err)
	}

	s.logger.Info("indexed documents",
		zap.String("collection", s.collection),
		zap.Int("count", len(docs)),
	)
	return len(docs), nil
}

// Query returns the k documents most similar to the text.
func (s *ChromemStore) Query(ctx context.Context, text string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if text == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	collection := s.db.GetCollection(s.collection, s.embeddingFunc())
	if collection == nil {
		return []models.SearchResult{}, nil
	}

	// chromem requires nResults <= document count.
	if count := collection.Count(); count == 0 {
		return []models.SearchResult{}, nil
	} else if k > count {
		k = count
	}

	results, err := collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.collection, err)
	}

	searchResults := make([]models.SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = models.SearchResult{
			Document: models.Document{
				ID:       r.ID,
				Content:  r.Content,
				Source:   r.Metadata["source"],
				Metadata: r.Metadata,
			},
			Score: r.Similarity,
		}
	}
	return searchResults, nil
}

// Count reports how many documents the collection holds.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	collection := s.db.GetCollection(s.collection, s.embeddingFunc())
	if collection == nil {
		return 0, nil
	}
	return collection.Count(), nil
}

// Close releases resources. chromem persists on every write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}
