package embedder

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// countingEmbedder returns len(text) as a one-element vector and records
// every batch it receives.
type countingEmbedder struct {
	batches [][]string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCachedEmbedder_OnlyMissesReachBackend(t *testing.T) {
	t.Parallel()
	next := &countingEmbedder{}
	c := NewCachedEmbedder(next, "m", NewMemoryCache(10, time.Hour))

	if _, err := c.Embed(context.Background(), []string{"yonex"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	got, err := c.Embed(context.Background(), []string{"lining", "yonex"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 6 || got[1][0] != 5 {
		t.Errorf("got %v, want [[6] [5]]", got)
	}
	if len(next.batches) != 2 || len(next.batches[1]) != 1 || next.batches[1][0] != "lining" {
		t.Errorf("backend batches = %v, want second batch [lining]", next.batches)
	}
}

func TestCachedEmbedder_ModelNamespacesKeys(t *testing.T) {
	t.Parallel()
	if cacheKey("a", "yonex") == cacheKey("b", "yonex") {
		t.Error("cache keys must differ across models")
	}
	if cacheKey("a", "Yonex") == cacheKey("a", "yonex") {
		t.Error("cache keys must be exact on text")
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	m := NewMemoryCache(2, time.Hour)
	m.Put("a", []float32{1})
	m.Put("b", []float32{2})
	m.Get("a")
	m.Put("c", []float32{3})

	if _, ok := m.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := m.Get("a"); !ok {
		t.Error("a was recently used and should remain")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCache(10, time.Minute)
	m.now = func() time.Time { return now }
	m.Put("a", []float32{1})

	now = now.Add(2 * time.Minute)
	if _, ok := m.Get("a"); ok {
		t.Error("expired entry returned")
	}
}

func TestBoltCache_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cache", "emb.db")
	b, err := OpenBoltCache(path, time.Minute)
	if err != nil {
		t.Fatalf("OpenBoltCache: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	want := []float32{0.25, -1.5, 3}
	b.Put("k", want)
	got, ok := b.Get("k")
	if !ok {
		t.Fatal("miss after Put")
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	now = now.Add(time.Hour)
	if _, ok := b.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if _, ok := b.Get("missing"); ok {
		t.Error("missing key returned a hit")
	}
}

func TestDecodeVector_Corrupt(t *testing.T) {
	t.Parallel()
	if _, _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short entry")
	}
}
