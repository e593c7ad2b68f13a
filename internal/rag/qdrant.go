package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// documentKey is the payload field holding the embedded text.
const documentKey = "document"

// pointNamespace seeds name-based UUIDs so a product always maps to the
// same Qdrant point across ingestion runs.
var pointNamespace = uuid.MustParse("6f1c2a9e-8d0b-4c57-9a43-2b7f5e1d0c88")

// PointUUID returns id unchanged when it is already a UUID, and otherwise a
// deterministic UUIDv5 derived from it. Qdrant only accepts UUID or integer IDs.
func PointUUID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection holding product vectors.
	Collection string

	// VectorSize is the embedding dimensionality. When non-zero the
	// collection is created on startup if missing; zero skips the check.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements VectorIndex backed by a Qdrant collection using
// cosine distance.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    QdrantConfig
}

// NewQdrantIndex connects to Qdrant and, when cfg.VectorSize is set, makes
// sure the collection exists.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	c := *cfg
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: c}
	if c.VectorSize > 0 {
		if err := idx.ensureCollection(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}
	return nil
}

// Upsert writes points and waits for Qdrant to apply them.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := make(map[string]any, len(p.Metadata)+1)
		for k, v := range p.Metadata {
			payload[k] = v
		}
		payload[documentKey] = p.Document

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return fmt.Errorf("qdrant: payload for point %q: %w", p.ID, err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointUUID(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: values,
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Search runs a cosine nearest-neighbour query. Qdrant reports cosine
// similarity, so each hit's distance is 1 - score.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	limit := uint64(topK)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hitFromPayload(r.GetId().GetUuid(), r.GetScore(), r.GetPayload()))
	}
	return hits, nil
}

func hitFromPayload(id string, score float32, payload map[string]*qdrant.Value) Hit {
	h := Hit{
		ID:       id,
		Distance: 1 - float64(score),
		Metadata: make(map[string]any, len(payload)),
	}
	for k, v := range payload {
		if k == documentKey {
			h.Document = v.GetStringValue()
			continue
		}
		h.Metadata[k] = valueToAny(v)
	}
	return h
}

// valueToAny unwraps scalar payload values. Nested structs and lists are not
// part of the product payload and come back as nil.
func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}

// Ping calls the Qdrant health endpoint.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Name implements VectorIndex.
func (q *QdrantIndex) Name() string { return "qdrant" }

// Close closes the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
