package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the loader cares about so tests are
// hermetic regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OLLAMA_HOST",
		"CHAT_MODEL", "EMBEDDING_MODEL", "DATA_DIR", "STORE_DIR",
		"VECTOR_STORE", "QDRANT_ADDR", "COLLECTION", "TOP_K",
		"MAX_SUPPLY_CHAIN_ROWS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, StoreChromem, cfg.VectorStore)
	assert.Equal(t, "logistics_docs", cfg.Collection)
	assert.Equal(t, "data/raw", cfg.DataDir)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, 500, cfg.MaxSupplyChainRows)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"LLM_PROVIDER=openai\nOPENAI_API_KEY=sk-test\nTOP_K=6\n",
	), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 6, cfg.TopK)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VECTOR_STORE=chromem\n"), 0o600))

	t.Setenv("VECTOR_STORE", "qdrant")
	t.Setenv("QDRANT_ADDR", "qdrant.internal:6334")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, StoreQdrant, cfg.VectorStore)
	assert.Equal(t, "qdrant.internal:6334", cfg.QdrantAddr)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Provider: ProviderOpenAI}
	cfg.ApplyDefaults()
	err := cfg.Validate()
	require.Error(t, err, "openai provider without a key must fail")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg = &Config{Provider: "watson"}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	cfg = &Config{VectorStore: "pinecone"}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	cfg = &Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
}
