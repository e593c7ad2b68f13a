package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/billshop/shopai-go/internal/catalog"
	"github.com/billshop/shopai-go/internal/config"
	"github.com/billshop/shopai-go/internal/embedder"
	"github.com/billshop/shopai-go/internal/match"
	"github.com/billshop/shopai-go/internal/rag"
	"github.com/billshop/shopai-go/internal/sqlagent"
	"github.com/billshop/shopai-go/internal/store"
)

const defaultCollection = "products"

// buildEmbedder validates the embedding settings and returns the embedder
// with its close function.
func buildEmbedder(log *slog.Logger) (rag.Embedder, func() error, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}
	emb, closeFn, err := embedder.NewFromEnv(log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("backend", embedder.Backend()))
	return emb, closeFn, nil
}

// buildIndex opens the vector index named by VECTOR_BACKEND (qdrant or
// chroma). createCollection sizes a missing Qdrant collection for the
// configured embedding model; serving paths leave it false.
func buildIndex(ctx context.Context, log *slog.Logger, createCollection bool) (rag.VectorIndex, error) {
	collection := config.String("VECTOR_COLLECTION", defaultCollection)

	switch backend := strings.ToLower(config.String("VECTOR_BACKEND", "qdrant")); backend {
	case "qdrant":
		cfg := &rag.QdrantConfig{
			Host:       config.String("QDRANT_HOST", "localhost"),
			Port:       config.Int("QDRANT_PORT", 6334),
			Collection: collection,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		}
		if createCollection {
			cfg.VectorSize = uint64(embedder.DefaultDimensions(embedder.Backend())) //nolint:gosec // dimensions are small and positive
		}
		idx, err := rag.NewQdrantIndex(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		log.Info("vector index ready", slog.String("backend", backend), slog.String("host", cfg.Host), slog.String("collection", collection))
		return idx, nil

	case "chroma":
		url := config.String("CHROMA_URL", "http://localhost:8000")
		idx, err := rag.NewChromaIndex(ctx, &rag.ChromaConfig{URL: url, Collection: collection})
		if err != nil {
			return nil, fmt.Errorf("failed to open Chroma collection %q at %s: %w", collection, url, err)
		}
		log.Info("vector index ready", slog.String("backend", backend), slog.String("url", url), slog.String("collection", collection))
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q, valid values: qdrant, chroma", backend)
	}
}

// buildCatalog opens the shop database from DATABASE_URL or the DB_* parts.
func buildCatalog(ctx context.Context, log *slog.Logger) (*catalog.Store, error) {
	dialect, err := catalog.ParseDialect(os.Getenv("DB_DRIVER"))
	if err != nil {
		return nil, err
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		if os.Getenv("DB_NAME") == "" {
			return nil, fmt.Errorf("catalog: set DATABASE_URL or DB_NAME")
		}
		dsn = catalog.BuildDSN(dialect,
			config.String("DB_HOST", "localhost"),
			os.Getenv("DB_USERNAME"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
		)
	}
	cat, err := catalog.Open(ctx, &catalog.Config{Dialect: dialect, DSN: dsn})
	if err != nil {
		return nil, err
	}
	log.Info("catalog database ready", slog.String("dialect", dialect.DisplayName()))
	return cat, nil
}

// buildMatcher wires the product matcher with the MATCH_* timeouts.
func buildMatcher(emb rag.Embedder, idx rag.VectorIndex) (*match.Matcher, *match.Assembler, error) {
	m, err := match.NewMatcher(emb, idx, &match.Config{
		EmbedTimeout:  config.Duration("MATCH_EMBED_TIMEOUT", match.DefaultStageTimeout),
		SearchTimeout: config.Duration("MATCH_SEARCH_TIMEOUT", match.DefaultStageTimeout),
	})
	if err != nil {
		return nil, nil, err
	}
	asm := match.NewAssembler(os.Getenv("FRONTEND_URL_NEXT"), os.Getenv("IMAGE_BASE_URL"))
	return m, asm, nil
}

// openHistory opens the SQL assistant's conversation store.
// SHOPAI_HISTORY_DB overrides the default path (~/.shopai/history.db) and
// "disabled" turns history off. Failures disable history with a warning.
// The returned close function is never nil.
func openHistory(log *slog.Logger) (store.ConversationStore, func()) {
	noop := func() {}
	dbPath := os.Getenv("SHOPAI_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via SHOPAI_HISTORY_DB=disabled")
		return nil, noop
	}
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, noop
		}
		dbPath = p
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, noop
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// newSQLAssistant wires the SQL assistant over cat with LLM generation and
// answering. history may be nil.
func newSQLAssistant(m model.BaseChatModel, cat *catalog.Store, history store.ConversationStore) (*sqlagent.Service, error) {
	answerer, err := sqlagent.NewLLMAnswerer(&sqlagent.AnswererConfig{Model: m, History: history})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise SQL answerer: %w", err)
	}
	return sqlagent.New(&sqlagent.Config{
		Catalog:   cat,
		Generator: sqlagent.NewLLMGenerator(m, cat.Dialect()),
		Answerer:  answerer,
	})
}
