package rag

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func TestPointUUID(t *testing.T) {
	t.Parallel()

	a := PointUUID("product:42")
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("PointUUID returned non-UUID %q: %v", a, err)
	}
	if b := PointUUID("product:42"); a != b {
		t.Errorf("PointUUID not deterministic: %q != %q", a, b)
	}
	if c := PointUUID("product:43"); a == c {
		t.Error("distinct IDs must map to distinct UUIDs")
	}

	existing := "0b7a3f8e-2c1d-4e5f-9a8b-7c6d5e4f3a2b"
	if got := PointUUID(existing); got != existing {
		t.Errorf("PointUUID(%q) = %q, want passthrough", existing, got)
	}
}

func TestHitFromPayload(t *testing.T) {
	t.Parallel()
	payload := qdrant.NewValueMap(map[string]any{
		"name":       "Lining Axforce",
		"price":      2100000.0,
		"product_id": int64(9),
		documentKey:  "Lining racket",
	})

	h := hitFromPayload("id-1", 0.75, payload)

	if h.Distance != 0.25 {
		t.Errorf("Distance = %v, want 0.25", h.Distance)
	}
	if h.Document != "Lining racket" {
		t.Errorf("Document = %q", h.Document)
	}
	if _, ok := h.Metadata[documentKey]; ok {
		t.Error("document must not leak into metadata")
	}
	if h.Metadata["name"] != "Lining Axforce" || h.Metadata["price"] != 2100000.0 || h.Metadata["product_id"] != int64(9) {
		t.Errorf("Metadata = %+v", h.Metadata)
	}
}
