package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/billshop/shopai-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	// defaultOpenAIModel matches the model the product collection was built with.
	defaultOpenAIModel = "text-embedding-3-large"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-large.
	defaultOpenAIDimensions = 3072
)

// DefaultDimensions returns the embedding vector size for the given backend.
// Ingestion uses it to size a new Qdrant collection. EMBEDDING_DIMENSIONS
// always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// Backend returns the resolved embedding backend name: EMBEDDING_PROVIDER,
// else "openai" when OPENAI_API_KEY is present, else "ollama".
func Backend() string {
	if b := getEnv("EMBEDDING_PROVIDER"); b != "" {
		return b
	}
	if getEnv("OPENAI_API_KEY") != "" {
		return "openai"
	}
	return "ollama"
}

// NewFromEnv constructs a rag.Embedder from environment variables and wraps
// it in a cache when EMBEDDING_CACHE is set. The returned close function
// releases the cache and is never nil.
//
//	EMBEDDING_PROVIDER   ollama | openai | azure
//	EMBEDDING_MODEL      overrides the backend default model
//	EMBEDDING_API_KEY    overrides OPENAI_API_KEY / AZURE_OPENAI_API_KEY
//	EMBEDDING_ENDPOINT   overrides the backend base URL
//	EMBEDDING_DIMENSIONS requested vector length (openai/azure)
//	EMBEDDING_CACHE      off | memory | bolt (default: off)
//	EMBEDDING_CACHE_SIZE max entries for the memory cache (default: 1000)
//	EMBEDDING_CACHE_TTL  entry lifetime, Go duration (default: 24h)
//	EMBEDDING_CACHE_PATH bbolt file for the bolt cache (default: ~/.shopai/embeddings.db)
func NewFromEnv(log *slog.Logger) (rag.Embedder, func() error, error) {
	base, model, err := newBackend(Backend())
	if err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }

	switch mode := getEnvOrDefault("EMBEDDING_CACHE", "off"); mode {
	case "off", "":
		return base, noop, nil

	case "memory":
		size := getEnvInt("EMBEDDING_CACHE_SIZE", defaultCacheSize)
		ttl := getEnvDuration("EMBEDDING_CACHE_TTL", defaultCacheTTL)
		log.Info("embedder: in-memory cache enabled", slog.Int("max_entries", size), slog.Duration("ttl", ttl))
		return NewCachedEmbedder(base, model, NewMemoryCache(size, ttl)), noop, nil

	case "bolt":
		path := getEnv("EMBEDDING_CACHE_PATH")
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("embedder: resolve home dir for cache: %w", err)
			}
			path = home + "/.shopai/embeddings.db"
		}
		cache, err := OpenBoltCache(path, getEnvDuration("EMBEDDING_CACHE_TTL", defaultCacheTTL))
		if err != nil {
			return nil, nil, err
		}
		log.Info("embedder: persistent cache enabled", slog.String("path", path))
		return NewCachedEmbedder(base, model, cache), cache.Close, nil

	default:
		return nil, nil, fmt.Errorf("embedder: unknown EMBEDDING_CACHE %q, valid values: off, memory, bolt", mode)
	}
}

// newBackend builds the uncached embedder and reports the model it uses.
func newBackend(backend string) (rag.Embedder, string, error) {
	switch backend {
	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel)
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), model, nil

	case "openai":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		baseURL := getEnvOrDefault("EMBEDDING_ENDPOINT", "https://api.openai.com/v1")
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		}), model, nil

	case "azure":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("AZURE_OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := getEnv("EMBEDDING_ENDPOINT")
		if endpoint == "" {
			endpoint = getEnv("AZURE_OPENAI_ENDPOINT")
		}
		if endpoint == "" {
			return nil, "", fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint + "/openai",
			APIKey:     apiKey,
			Model:      model,
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
			Azure:      true,
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"),
		}), model, nil

	default:
		return nil, "", fmt.Errorf("embedder: unknown backend %q, valid values: ollama, openai, azure", backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration parses a Go duration from the named variable.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
