// Package config provides configuration loading for the logistics RAG
// assistant.
//
// Settings come from three layers, lowest precedence first: hardcoded
// defaults, a local .env file, and real environment variables. The only
// credential is OPENAI_API_KEY, required when the OpenAI provider is
// selected.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Provider names for the embedding/generation backend.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Vector store backend names.
const (
	StoreChromem = "chromem"
	StoreQdrant  = "qdrant"
)

// Config holds all runtime settings.
type Config struct {
	// Provider selects the embedding/generation backend: "ollama" or "openai".
	Provider string `koanf:"llm_provider"`

	// OpenAIAPIKey is the credential for the OpenAI (or compatible) API.
	OpenAIAPIKey string `koanf:"openai_api_key"`
	// OpenAIBaseURL allows pointing at an OpenAI-compatible endpoint.
	OpenAIBaseURL string `koanf:"openai_base_url"`

	// OllamaHost is the base URL of a local Ollama server.
	OllamaHost string `koanf:"ollama_host"`

	// ChatModel is the generation model name.
	ChatModel string `koanf:"chat_model"`
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `koanf:"embedding_model"`

	// DataDir holds raw downloaded datasets.
	DataDir string `koanf:"data_dir"`
	// StoreDir holds the chromem vector store files.
	StoreDir string `koanf:"store_dir"`
	// VectorStore selects the store backend: "chromem" or "qdrant".
	VectorStore string `koanf:"vector_store"`
	// QdrantAddr is the Qdrant gRPC address when VectorStore is "qdrant".
	QdrantAddr string `koanf:"qdrant_addr"`
	// Collection is the vector store collection name.
	Collection string `koanf:"collection"`

	// TopK is the number of documents retrieved per question.
	TopK int `koanf:"top_k"`

	// MaxSupplyChainRows caps how many rows of the large supply chain
	// dataset are loaded.
	MaxSupplyChainRows int `koanf:"max_supply_chain_rows"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if c.OllamaHost == "" {
		c.OllamaHost = "http://localhost:11434"
	}
	if c.ChatModel == "" {
		if c.Provider == ProviderOpenAI {
			c.ChatModel = "gpt-4o-mini"
		} else {
			c.ChatModel = "llama3.2"
		}
	}
	if c.EmbeddingModel == "" {
		if c.Provider == ProviderOpenAI {
			c.EmbeddingModel = "text-embedding-3-small"
		} else {
			c.EmbeddingModel = "llama3"
		}
	}
	if c.DataDir == "" {
		c.DataDir = "data/raw"
	}
	if c.StoreDir == "" {
		c.StoreDir = "data/store"
	}
	if c.VectorStore == "" {
		c.VectorStore = StoreChromem
	}
	if c.QdrantAddr == "" {
		c.QdrantAddr = "localhost:6334"
	}
	if c.Collection == "" {
		c.Collection = "logistics_docs"
	}
	if c.TopK == 0 {
		c.TopK = 4
	}
	if c.MaxSupplyChainRows == 0 {
		c.MaxSupplyChainRows = 500
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when llm_provider is %q", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown llm_provider %q", c.Provider)
	}

	switch c.VectorStore {
	case StoreChromem, StoreQdrant:
	default:
		return fmt.Errorf("unknown vector_store %q", c.VectorStore)
	}

	if c.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	return nil
}

// Load reads configuration from the given .env file (if it exists) and the
// environment. An empty envFile means "./.env".
//
// Environment variables map to lowercased config keys:
//
//	OPENAI_API_KEY -> openai_api_key
//	VECTOR_STORE   -> vector_store
func Load(envFile string) (*Config, error) {
	k := koanf.New(".")

	if envFile == "" {
		envFile = ".env"
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := k.Load(file.Provider(envFile), dotenv.ParserEnv("", ".", strings.ToLower)); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
