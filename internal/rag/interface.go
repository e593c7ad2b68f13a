// Package rag defines the vector-search building blocks shared by the product
// matcher and the catalog ingestion pipeline: text embedding and a vector
// index holding one point per catalog product. Concrete backends (Qdrant,
// Chroma) satisfy VectorIndex so callers never depend on a specific store.
package rag

import (
	"context"
)

// Point is a product vector plus the payload stored next to it.
type Point struct {
	// ID is the stable identifier of the point, derived from the product ID.
	ID string

	// Document is the text the vector was computed from.
	Document string

	// Metadata holds the catalog fields (name, price, product_id,
	// featured_image). Values must be strings, float64s, or int64s.
	Metadata map[string]any

	// Vector is the embedding of Document.
	Vector []float32
}

// Hit is one nearest-neighbour search result.
type Hit struct {
	ID       string
	Document string
	Metadata map[string]any

	// Distance is the cosine distance to the query vector: 0 for identical
	// direction, growing as vectors diverge. Backends that report a
	// similarity score convert it as 1 - score.
	Distance float64
}

// VectorIndex stores and searches product embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Upsert stores or replaces a batch of points.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to topK hits ordered by ascending distance.
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Name identifies the backend in readiness output.
	Name() string

	// Close releases any resources held by the index.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
