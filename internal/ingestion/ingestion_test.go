package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/billshop/shopai-go/internal/catalog"
	"github.com/billshop/shopai-go/internal/match"
	"github.com/billshop/shopai-go/internal/rag"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeEmbedder struct {
	batches [][]string
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type fakeIndex struct {
	points []rag.Point
	calls  int
	failAt int // 1-based upsert call that fails, 0 for never
}

func (f *fakeIndex) Upsert(_ context.Context, points []rag.Point) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("collection not found")
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeIndex) Search(context.Context, []float32, int) ([]rag.Hit, error) {
	return nil, nil
}

func (f *fakeIndex) Ping(context.Context) error { return nil }

func (f *fakeIndex) Name() string { return "fake" }

func (f *fakeIndex) Close() error { return nil }

func products(n int) []catalog.Product {
	out := make([]catalog.Product, n)
	for i := range out {
		out[i] = catalog.Product{ID: int64(i + 1), Name: "Vợt " + strings.Repeat("A", i+1), Price: 1000000}
	}
	return out
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

func TestDocument(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   catalog.Product
		want string
	}{
		{"name only", catalog.Product{Name: " Yonex Astrox 99 "}, "Yonex Astrox 99"},
		{"strips markup", catalog.Product{Name: "Lining N7", Description: "<p>Vợt <b>công</b>&nbsp;thủ</p>\n<ul><li>4U</li></ul>"}, "Lining N7\nVợt công thủ 4U"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Document(tt.in); got != tt.want {
				t.Errorf("Document() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()
	desc := strings.Repeat("đ", maxDescriptionBytes) // 2 bytes per rune
	doc := Document(catalog.Product{Name: "X", Description: desc + "x"})
	body := strings.TrimPrefix(doc, "X\n")
	if len(body) > maxDescriptionBytes {
		t.Errorf("description = %d bytes, want <= %d", len(body), maxDescriptionBytes)
	}
	if !strings.HasSuffix(body, "đ") {
		t.Error("truncation split a rune")
	}
}

func TestMetadata_RoundTripsThroughMatcher(t *testing.T) {
	t.Parallel()
	p := catalog.Product{ID: 42, Name: "Victor Thruster K 9900", Price: 3890000, FeaturedImage: "tk9900.webp"}
	item := match.ItemFromMetadata(Metadata(p))
	if item.Name != p.Name || item.Price != p.Price || item.ProductID != "42" || item.FeaturedImage != p.FeaturedImage {
		t.Errorf("item = %+v", item)
	}
	if PointID(42) != "product:42" {
		t.Errorf("PointID = %q", PointID(42))
	}
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

func TestPipeline_IngestBatches(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	p, err := NewPipeline(emb, idx, &Config{BatchSize: 2})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	var progress [][2]int
	stats, err := p.Ingest(context.Background(), products(5), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stats.Upserted != 5 || len(idx.points) != 5 || idx.calls != 3 {
		t.Errorf("stats = %+v, points = %d, calls = %d", stats, len(idx.points), idx.calls)
	}
	if len(emb.batches) != 3 || len(emb.batches[2]) != 1 {
		t.Errorf("embed batches = %v", emb.batches)
	}
	want := [][2]int{{0, 5}, {2, 5}, {4, 5}, {5, 5}}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
	if idx.points[0].ID != "product:1" || idx.points[0].Metadata["product_id"] != "1" {
		t.Errorf("point = %+v", idx.points[0])
	}
}

func TestPipeline_SkipsNamelessAndDedupes(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{}
	p, _ := NewPipeline(&fakeEmbedder{}, idx, nil)

	in := []catalog.Product{
		{ID: 1, Name: "Old name"},
		{ID: 2, Name: "  "},
		{ID: 1, Name: "New name"},
		{ID: 3, Name: "Other"},
	}
	stats, err := p.Ingest(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stats.Read != 4 || stats.Skipped != 1 || stats.Upserted != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if idx.points[0].Metadata["name"] != "New name" {
		t.Errorf("later duplicate should win, got %v", idx.points[0].Metadata["name"])
	}
}

func TestPipeline_StopsOnFailure(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{failAt: 2}
	p, _ := NewPipeline(&fakeEmbedder{}, idx, &Config{BatchSize: 2})

	stats, err := p.Ingest(context.Background(), products(5), nil)
	if err == nil || !strings.Contains(err.Error(), "collection not found") {
		t.Fatalf("err = %v", err)
	}
	if stats.Upserted != 2 {
		t.Errorf("Upserted = %d, want 2", stats.Upserted)
	}
}

func TestPipeline_EmbedError(t *testing.T) {
	t.Parallel()
	boom := errors.New("401 unauthorized")
	p, _ := NewPipeline(&fakeEmbedder{err: boom}, &fakeIndex{}, nil)
	if _, err := p.Ingest(context.Background(), products(1), nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	t.Parallel()
	if _, err := NewPipeline(nil, &fakeIndex{}, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(&fakeEmbedder{}, nil, nil); err == nil {
		t.Error("expected error for nil index")
	}
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

func TestFileSource(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"exports/rackets.json":      {Data: []byte(`[{"id":1,"name":"Yonex Astrox 99","price":4200000},{"id":2,"name":"Lining N7"}]`)},
		"exports/shoes/a300.json":   {Data: []byte(`{"id":3,"name":"Yonex SHB 65Z3","featured_image":"65z3.png"}`)},
		"exports/shoes/readme.txt":  {Data: []byte("not json")},
		"exports/broken/skip.jsonx": {Data: []byte("{")},
	}
	src := NewFileSource(fsys, "exports/**/*.json", "exports/*.json")

	files, err := src.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want 2 unique matches", files)
	}

	got, err := src.Products(context.Background())
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(got) != 3 || got[2].FeaturedImage != "65z3.png" {
		t.Errorf("products = %+v", got)
	}
}

func TestFileSource_Errors(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{"bad.json": {Data: []byte("{not json")}}
	if _, err := NewFileSource(fsys, "*.json").Products(context.Background()); err == nil {
		t.Error("expected decode error")
	}
	if _, err := NewFileSource(fsys, "[").Files(); err == nil {
		t.Error("expected invalid pattern error")
	}
}

type staticSource []catalog.Product

func (s staticSource) Products(context.Context) ([]catalog.Product, error) { return s, nil }

func TestPipeline_RunMultiSource(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{}
	p, _ := NewPipeline(&fakeEmbedder{}, idx, nil)
	src := MultiSource{staticSource(products(2)), staticSource{{ID: 9, Name: "Cầu lông Thành Công"}}}

	stats, err := p.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Upserted != 3 {
		t.Errorf("Upserted = %d, want 3", stats.Upserted)
	}
}
