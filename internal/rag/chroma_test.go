package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newChromaTestServer fakes the subset of the Chroma v1 API used by
// ChromaIndex. query answers with queryBody; upserts are recorded.
func newChromaTestServer(t *testing.T, queryBody string, upserts *[]chromaUpsertRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode create body: %v", err)
		}
		if body["get_or_create"] != true {
			t.Errorf("get_or_create = %v, want true", body["get_or_create"])
		}
		_, _ = w.Write([]byte(`{"id":"col-1","name":"` + body["name"].(string) + `"}`))
	})
	mux.HandleFunc("POST /api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		var req chromaQueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode query body: %v", err)
		}
		if req.NResults != 8 {
			t.Errorf("n_results = %d, want 8", req.NResults)
		}
		_, _ = w.Write([]byte(queryBody))
	})
	mux.HandleFunc("POST /api/v1/collections/col-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		var req chromaUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode upsert body: %v", err)
		}
		*upserts = append(*upserts, req)
		_, _ = w.Write([]byte(`true`))
	})
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"nanosecond heartbeat":1}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestChromaIndex_Search(t *testing.T) {
	t.Parallel()
	body := `{
		"ids": [["p1","p2"]],
		"distances": [[0.1, 0.3]],
		"metadatas": [[{"name":"Yonex Astrox 100","price":3500000,"product_id":12}, null]],
		"documents": [["Yonex racket", null]]
	}`
	srv := newChromaTestServer(t, body, nil)

	idx, err := NewChromaIndex(context.Background(), &ChromaConfig{URL: srv.URL + "/", Collection: "product_descriptions"})
	if err != nil {
		t.Fatalf("NewChromaIndex: %v", err)
	}
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 8)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != "p1" || hits[0].Distance != 0.1 || hits[0].Document != "Yonex racket" {
		t.Errorf("hits[0] = %+v", hits[0])
	}
	if hits[0].Metadata["name"] != "Yonex Astrox 100" {
		t.Errorf("name = %v", hits[0].Metadata["name"])
	}
	if hits[1].Metadata == nil || hits[1].Document != "" {
		t.Errorf("hits[1] should have empty metadata and document, got %+v", hits[1])
	}
}

func TestChromaIndex_SearchEmpty(t *testing.T) {
	t.Parallel()
	srv := newChromaTestServer(t, `{"ids":[[]],"distances":[[]],"metadatas":[[]],"documents":[[]]}`, nil)
	idx, err := NewChromaIndex(context.Background(), &ChromaConfig{URL: srv.URL, Collection: "c"})
	if err != nil {
		t.Fatalf("NewChromaIndex: %v", err)
	}
	hits, err := idx.Search(context.Background(), []float32{1}, 8)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %v, want none", hits)
	}
}

func TestChromaIndex_UpsertAndPing(t *testing.T) {
	t.Parallel()
	var upserts []chromaUpsertRequest
	srv := newChromaTestServer(t, `{}`, &upserts)
	idx, err := NewChromaIndex(context.Background(), &ChromaConfig{URL: srv.URL, Collection: "c"})
	if err != nil {
		t.Fatalf("NewChromaIndex: %v", err)
	}

	err = idx.Upsert(context.Background(), []Point{
		{ID: "product:1", Document: "doc", Vector: []float32{0.5}, Metadata: map[string]any{"name": "A"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(upserts) != 1 || upserts[0].IDs[0] != "product:1" || upserts[0].Documents[0] != "doc" {
		t.Errorf("upserts = %+v", upserts)
	}
	if err := idx.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestChromaIndex_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collection store unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := NewChromaIndex(context.Background(), &ChromaConfig{URL: srv.URL, Collection: "c"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 503") || !strings.Contains(err.Error(), "unavailable") {
		t.Errorf("error %q should carry status and body", err)
	}
}

func TestNewChromaIndex_Validation(t *testing.T) {
	t.Parallel()
	if _, err := NewChromaIndex(context.Background(), &ChromaConfig{Collection: "c"}); err == nil {
		t.Error("expected error for missing URL")
	}
	if _, err := NewChromaIndex(context.Background(), &ChromaConfig{URL: "http://x"}); err == nil {
		t.Error("expected error for missing collection")
	}
}
