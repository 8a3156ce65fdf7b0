package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/logistics-rag/pkg/models"
)

// newFakeOllama serves just enough of the Ollama API for the client tests.
func newFakeOllama(t *testing.T) (*httptest.Server, *OllamaClient) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-chat", req["model"])
		json.NewEncoder(w).Encode(map[string]any{
			"model":    "test-chat",
			"response": "42 shipments used Standard Class.",
			"done":     true,
		})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "test-chat",
			"message": map[string]any{"role": "assistant", "content": "Hello from the assistant."},
			"done":    true,
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req["model"])

		input, ok := req["input"].([]any)
		require.True(t, ok, "input must be a list of texts")

		embeddings := make([][]float32, len(input))
		for i := range embeddings {
			embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":      "test-embed",
			"embeddings": embeddings,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewOllamaClient(server.URL, "test-chat", "test-embed")
	require.NoError(t, err)
	return server, client
}

func TestOllamaGenerate(t *testing.T) {
	_, client := newFakeOllama(t)

	out, err := client.Generate(context.Background(), "How many shipments?", DefaultModelConfig())
	require.NoError(t, err)
	assert.Equal(t, "42 shipments used Standard Class.", out)
}

func TestOllamaChat(t *testing.T) {
	_, client := newFakeOllama(t)

	reply, err := client.Chat(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "You are helpful."},
		{Role: models.RoleUser, Content: "Hi"},
	}, DefaultModelConfig())
	require.NoError(t, err)

	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, "Hello from the assistant.", reply.Content)
}

func TestOllamaEmbedTexts(t *testing.T) {
	_, client := newFakeOllama(t)

	vecs, err := client.EmbedTexts(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vecs[0])

	vec, err := client.EmbedText(context.Background(), "only one")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestOllamaEmbedEmptyInput(t *testing.T) {
	_, client := newFakeOllama(t)

	_, err := client.EmbedTexts(context.Background(), nil)
	assert.Error(t, err)
}
