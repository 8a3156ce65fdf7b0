package vector

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/logistics-rag/pkg/models"
)

// fakeEmbedder produces deterministic bag-of-words embeddings so similarity
// search behaves sensibly without a live provider: a text is always most
// similar to itself.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, 64)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%64]++
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(float64(norm)))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func testDocs() []models.Document {
	return []models.Document{
		{
			ID:       models.NewDocumentID("supply_chain", "1"),
			Content:  "Shipment order with standard class shipping to Puerto Rico",
			Source:   "supply_chain",
			Metadata: map[string]string{"source": "supply_chain", "row": "1"},
		},
		{
			ID:       models.NewDocumentID("freight_rates", "1"),
			Content:  "Freight rate for carrier V44 air transport between ports",
			Source:   "freight_rates",
			Metadata: map[string]string{"source": "freight_rates", "row": "1"},
		},
		{
			ID:       models.NewDocumentID("order_list", "1"),
			Content:  "Logistics order from origin port nine handled by plant sixteen",
			Source:   "order_list",
			Metadata: map[string]string{"source": "order_list", "row": "1"},
		},
	}
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(t.TempDir(), "test_docs", &fakeEmbedder{}, nil)
	require.NoError(t, err)
	return store
}

func TestChromemIndexAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docs := testDocs()

	indexed, err := store.Index(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, len(docs), indexed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(docs), count)

	// Querying with a document's own text must return that document first.
	for _, doc := range docs {
		results, err := store.Query(ctx, doc.Content, 2)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, doc.ID, results[0].Document.ID)
		assert.Equal(t, doc.Source, results[0].Document.Source)
	}
}

func TestChromemQueryRanking(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Index(ctx, testDocs())
	require.NoError(t, err)

	results, err := store.Query(ctx, "freight rate carrier air transport", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "freight_rates", results[0].Document.Source)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score, "results must be ranked by similarity")
	}
}

func TestChromemReindexKeepsRecall(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docs := testDocs()

	_, err := store.Index(ctx, docs)
	require.NoError(t, err)
	_, err = store.Index(ctx, docs)
	require.NoError(t, err, "re-indexing the same documents must succeed")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(docs), count, "deterministic IDs upsert instead of duplicating")

	results, err := store.Query(ctx, docs[0].Content, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, docs[0].ID, results[0].Document.ID, "recall is unchanged after re-indexing")
}

func TestChromemIndexAllOrNothing(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{}
	store, err := NewChromemStore(t.TempDir(), "test_docs", embedder, nil)
	require.NoError(t, err)

	embedder.err = errors.New("embedding provider unavailable")
	_, err = store.Index(ctx, testDocs())
	require.Error(t, err)

	embedder.err = nil
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "a failed embedding run must not leave partial writes")
}

func TestChromemIndexEmpty(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Index(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestChromemQueryEmptyStore(t *testing.T) {
	store := newTestStore(t)
	results, err := store.Query(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewChromemStore(dir, "test_docs", &fakeEmbedder{}, nil)
	require.NoError(t, err)
	_, err = store.Index(ctx, testDocs())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(dir, "test_docs", &fakeEmbedder{}, nil)
	require.NoError(t, err)
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "documents survive a restart")
}
