package vector

import (
	"context"
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/andrew/logistics-rag/pkg/models"
)

// upsertBatchSize bounds how many points go into one Qdrant upsert call.
const upsertBatchSize = 100

// QdrantStore is an alternative Store backed by a Qdrant server over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	embedder    Embedder
	logger      *zap.Logger
}

// NewQdrantStore connects to the Qdrant gRPC endpoint at addr.
// A nil logger is replaced with a no-op.
func NewQdrantStore(addr, collection string, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client for %s: %w", addr, err)
	}

	logger.Info("connected to qdrant", zap.String("addr", addr), zap.String("collection", collection))

	return &QdrantStore{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
		embedder:    embedder,
		logger:      logger,
	}, nil
}

// ensureCollection creates the collection if it does not exist. The vector
// dimension comes from the first embedding of the batch being indexed.
func (s *QdrantStore) ensureCollection(ctx context.Context, dimension int) error {
	collections, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	for _, col := range collections.GetCollections() {
		if col.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}

	s.logger.Info("created qdrant collection",
		zap.String("collection", s.collection),
		zap.Int("dimension", dimension),
	)
	return nil
}

// Index embeds all documents first, then upserts them in batches. Point IDs
// reuse the deterministic document UUIDs, so re-indexing upserts in place.
func (s *QdrantStore) Index(ctx context.Context, docs []models.Document) (int, error) {
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

	if err := s.ensureCollection(ctx, len(embeddings[0])); err != nil {
		return 0, err
	}

	points := make([]*qdrantclient.PointStruct, 0, upsertBatchSize)
	for i, doc := range docs {
		payload := map[string]*qdrantclient.Value{
			"text":   {Kind: &qdrantclient.Value_StringValue{StringValue: doc.Content}},
			"source": {Kind: &qdrantclient.Value_StringValue{StringValue: doc.Source}},
		}
		if row, ok := doc.Metadata["row"]; ok {
			payload["row"] = &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: row}}
		}

		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: doc.ID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: embeddings[i]},
				},
			},
			Payload: payload,
		})

		if len(points) >= upsertBatchSize || i == len(docs)-1 {
			_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
				CollectionName: s.collection,
				Points:         points,
			})
			if err != nil {
				return 0, fmt.Errorf("upserting points: %w", err)
			}
			points = make([]*qdrantclient.PointStruct, 0, upsertBatchSize)
		}
	}

	s.logger.Info("indexed documents",
		zap.String("collection", s.collection),
		zap.Int("count", len(docs)),
	)
	return len(docs), nil
}

// Query embeds the text and searches the collection.
func (s *QdrantStore) Query(ctx context.Context, text string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if text == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", s.collection, err)
	}

	results := make([]models.SearchResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		metadata := make(map[string]string, len(point.GetPayload()))
		for key, value := range point.GetPayload() {
			metadata[key] = value.GetStringValue()
		}

		results = append(results, models.SearchResult{
			Document: models.Document{
				ID:       point.GetId().GetUuid(),
				Content:  metadata["text"],
				Source:   metadata["source"],
				Metadata: metadata,
			},
			Score: point.GetScore(),
		})
	}
	return results, nil
}

// Count reports how many points the collection holds. A missing collection
// counts as empty.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	collections, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return 0, fmt.Errorf("listing collections: %w", err)
	}

	exists := false
	for _, col := range collections.GetCollections() {
		if col.GetName() == s.collection {
			exists = true
			break
		}
	}
	if !exists {
		return 0, nil
	}

	resp, err := s.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close terminates the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}
