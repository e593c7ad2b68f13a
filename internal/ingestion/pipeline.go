// Package ingestion implements the catalog ingestion pipeline. It reads
// products from the shop database and/or exported JSON files, embeds a short
// text per product, and upserts the results into the vector index the
// product matcher searches. This pipeline is invoked by `shopai ingest`.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/billshop/shopai-go/internal/catalog"
	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// BatchSize is the number of products embedded and upserted per round.
	// Defaults to 64 if zero.
	BatchSize int
}

// Progress is called after every batch with the number of products stored
// so far and the total to store.
type Progress func(done, total int)

// Stats summarises one ingestion run.
type Stats struct {
	Read     int
	Skipped  int
	Upserted int
}

// Pipeline orchestrates the read → embed → upsert flow.
type Pipeline struct {
	embedder rag.Embedder
	index    rag.VectorIndex
	cfg      *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	return &Pipeline{embedder: embedder, index: index, cfg: &c}, nil
}

// Run reads every product from src and ingests it.
func (p *Pipeline) Run(ctx context.Context, src Source, progress Progress) (*Stats, error) {
	products, err := src.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingestion: read products: %w", err)
	}
	return p.Ingest(ctx, products, progress)
}

// Ingest embeds and upserts products in batches. Products without a name are
// skipped; a later duplicate ID replaces an earlier one. It stops at the
// first failed batch; batches already stored stay stored.
func (p *Pipeline) Ingest(ctx context.Context, products []catalog.Product, progress Progress) (*Stats, error) {
	log := logging.FromContext(ctx)
	if progress == nil {
		progress = func(int, int) {}
	}

	usable, skipped := dedupe(products)
	stats := &Stats{Read: len(products), Skipped: skipped}
	if skipped > 0 {
		log.Warn("ingestion: skipped products without a name", slog.Int("skipped", skipped))
	}
	progress(0, len(usable))

	for start := 0; start < len(usable); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(usable))
		batch := usable[start:end]

		texts := make([]string, len(batch))
		for i, prod := range batch {
			texts[i] = Document(prod)
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("ingestion: embedding failed for batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return stats, fmt.Errorf("ingestion: embedder returned %d vectors for %d products", len(vectors), len(batch))
		}

		points := make([]rag.Point, len(batch))
		for i, prod := range batch {
			points[i] = ToPoint(prod, vectors[i])
		}
		if err := p.index.Upsert(ctx, points); err != nil {
			return stats, fmt.Errorf("ingestion: upsert failed for batch at %d: %w", start, err)
		}

		stats.Upserted += len(batch)
		progress(stats.Upserted, len(usable))
		log.Debug("ingestion: batch stored", slog.Int("from", start), slog.Int("count", len(batch)))
	}

	log.Info("ingestion: completed",
		slog.Int("read", stats.Read),
		slog.Int("skipped", stats.Skipped),
		slog.Int("upserted", stats.Upserted),
		slog.String("index", p.index.Name()),
	)
	return stats, nil
}

// dedupe drops nameless products and keeps the last occurrence of each ID,
// in first-seen order.
func dedupe(products []catalog.Product) ([]catalog.Product, int) {
	pos := make(map[int64]int, len(products))
	out := make([]catalog.Product, 0, len(products))
	skipped := 0
	for _, prod := range products {
		if strings.TrimSpace(prod.Name) == "" {
			skipped++
			continue
		}
		if i, ok := pos[prod.ID]; ok {
			out[i] = prod
			continue
		}
		pos[prod.ID] = len(out)
		out = append(out, prod)
	}
	return out, skipped
}
