package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ChromaConfig holds connection parameters for a Chroma server.
type ChromaConfig struct {
	// URL is the Chroma base URL, e.g. "http://localhost:8000".
	URL string

	// Collection is the collection name; it is created if missing.
	Collection string

	// Timeout bounds each HTTP call (default: 30s).
	Timeout time.Duration
}

// ChromaIndex implements VectorIndex against the Chroma v1 REST API. It
// exists so deployments that already hold a populated Chroma collection can
// be served without re-ingesting into Qdrant.
type ChromaIndex struct {
	baseURL      string
	collectionID string
	client       *http.Client
}

// NewChromaIndex resolves (or creates) the named collection with cosine
// distance and returns an index bound to it.
func NewChromaIndex(ctx context.Context, cfg *ChromaConfig) (*ChromaIndex, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("chroma: URL is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("chroma: collection name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &ChromaIndex{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
	}

	var created struct {
		ID string `json:"id"`
	}
	body := map[string]any{
		"name":          cfg.Collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/collections", body, &created); err != nil {
		return nil, fmt.Errorf("chroma: get or create collection %q: %w", cfg.Collection, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("chroma: server returned no id for collection %q", cfg.Collection)
	}
	c.collectionID = created.ID
	return c, nil
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]*string        `json:"documents"`
}

// Search queries the collection with a precomputed embedding.
func (c *ChromaIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        topK,
		Include:         []string{"metadatas", "distances", "documents"},
	}
	var resp chromaQueryResponse
	if err := c.do(ctx, http.MethodPost, c.collectionPath("query"), req, &resp); err != nil {
		return nil, fmt.Errorf("chroma: query failed: %w", err)
	}

	if len(resp.Metadatas) == 0 || len(resp.Metadatas[0]) == 0 {
		return nil, nil
	}
	metas := resp.Metadatas[0]
	hits := make([]Hit, 0, len(metas))
	for i, meta := range metas {
		h := Hit{Metadata: meta}
		if h.Metadata == nil {
			h.Metadata = map[string]any{}
		}
		if len(resp.IDs) > 0 && i < len(resp.IDs[0]) {
			h.ID = resp.IDs[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			h.Distance = resp.Distances[0][i]
		}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) && resp.Documents[0][i] != nil {
			h.Document = *resp.Documents[0][i]
		}
		hits = append(hits, h)
	}
	return hits, nil
}

type chromaUpsertRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
	Documents  []string         `json:"documents"`
}

// Upsert writes points to the collection. Chroma accepts arbitrary string IDs.
func (c *ChromaIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	req := chromaUpsertRequest{
		IDs:        make([]string, 0, len(points)),
		Embeddings: make([][]float32, 0, len(points)),
		Metadatas:  make([]map[string]any, 0, len(points)),
		Documents:  make([]string, 0, len(points)),
	}
	for _, p := range points {
		req.IDs = append(req.IDs, p.ID)
		req.Embeddings = append(req.Embeddings, p.Vector)
		req.Metadatas = append(req.Metadatas, p.Metadata)
		req.Documents = append(req.Documents, p.Document)
	}
	if err := c.do(ctx, http.MethodPost, c.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("chroma: upsert failed: %w", err)
	}
	return nil
}

// Ping calls the heartbeat endpoint.
func (c *ChromaIndex) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/api/v1/heartbeat", nil, nil); err != nil {
		return fmt.Errorf("chroma: heartbeat failed: %w", err)
	}
	return nil
}

// Name implements VectorIndex.
func (c *ChromaIndex) Name() string { return "chroma" }

// Close is a no-op; the HTTP client holds no dedicated connection.
func (c *ChromaIndex) Close() error { return nil }

func (c *ChromaIndex) collectionPath(op string) string {
	return "/api/v1/collections/" + url.PathEscape(c.collectionID) + "/" + op
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Non-2xx responses become errors carrying a prefix of the body.
func (c *ChromaIndex) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
