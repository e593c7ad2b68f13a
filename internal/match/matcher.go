package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/rag"
)

const (
	// DefaultTopK is the number of candidates requested from the index.
	DefaultTopK = 8
	// DefaultStageTimeout bounds each upstream call when no timeout is configured.
	DefaultStageTimeout = 15 * time.Second
)

// Searcher is the slice of the vector index the matcher needs.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]rag.Hit, error)
}

// Config tunes a Matcher. Zero values fall back to the defaults above.
type Config struct {
	// TopK is how many candidates to retrieve per query.
	TopK int
	// EmbedTimeout bounds the embedding call.
	EmbedTimeout time.Duration
	// SearchTimeout bounds the vector search.
	SearchTimeout time.Duration
}

// Matcher runs the embed, retrieve, score and select pipeline. It holds no
// per-request state and is safe for concurrent use.
type Matcher struct {
	embedder rag.Embedder
	index    Searcher
	cfg      Config
}

// NewMatcher constructs a Matcher. cfg may be nil.
func NewMatcher(embedder rag.Embedder, index Searcher, cfg *Config) (*Matcher, error) {
	if embedder == nil {
		return nil, errors.New("match: embedder must not be nil")
	}
	if index == nil {
		return nil, errors.New("match: index must not be nil")
	}
	m := &Matcher{embedder: embedder, index: index}
	if cfg != nil {
		m.cfg = *cfg
	}
	if m.cfg.TopK <= 0 {
		m.cfg.TopK = DefaultTopK
	}
	if m.cfg.EmbedTimeout <= 0 {
		m.cfg.EmbedTimeout = DefaultStageTimeout
	}
	if m.cfg.SearchTimeout <= 0 {
		m.cfg.SearchTimeout = DefaultStageTimeout
	}
	return m, nil
}

// Match resolves query to the best catalog product. Empty queries and empty
// or weak retrievals are reported through Result.Outcome; only upstream
// failures return an error, always wrapped in a *StageError.
func (m *Matcher) Match(ctx context.Context, query string) (*Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return &Result{Outcome: OutcomeEmptyQuery}, nil
	}

	vector, err := m.embed(ctx, q)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: err}
	}

	hits, err := m.search(ctx, vector)
	if err != nil {
		return nil, &StageError{Stage: StageRetrieve, Err: err}
	}
	if len(hits) == 0 {
		return &Result{Query: q, Outcome: OutcomeNoCandidates}, nil
	}

	raw := make([]Hit, 0, len(hits))
	for _, h := range hits {
		raw = append(raw, Hit{Item: ItemFromMetadata(h.Metadata), Distance: h.Distance})
	}
	scored := Score(q, raw)

	res := &Result{Query: q, Candidates: Rank(scored), Top: Select(scored)}
	if res.Top == nil {
		res.Outcome = OutcomeBelowThreshold
	}

	log := logging.FromContext(ctx)
	for _, c := range res.Candidates {
		log.Debug("match: candidate",
			slog.String("name", c.Item.Name),
			slog.Float64("similarity", c.Similarity),
			slog.Float64("bonus", c.Bonus),
			slog.Float64("total", c.Total),
		)
	}
	return res, nil
}

func (m *Matcher) embed(ctx context.Context, q string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.EmbedTimeout)
	defer cancel()

	vectors, err := m.embedder.Embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedder returned no vector")
	}
	return vectors[0], nil
}

func (m *Matcher) search(ctx context.Context, vector []float32) ([]rag.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.SearchTimeout)
	defer cancel()

	hits, err := m.index.Search(ctx, vector, m.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", m.cfg.TopK, err)
	}
	return hits, nil
}
