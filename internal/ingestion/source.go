package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/billshop/shopai-go/internal/catalog"
)

// Source yields catalog products to ingest.
type Source interface {
	Products(ctx context.Context) ([]catalog.Product, error)
}

// FileSource reads products from JSON files matching doublestar patterns
// such as "exports/**/*.json". Each file holds either one product object or
// an array of them.
type FileSource struct {
	fsys     fs.FS
	patterns []string
}

// NewFileSource returns a FileSource resolving patterns within fsys.
func NewFileSource(fsys fs.FS, patterns ...string) *FileSource {
	return &FileSource{fsys: fsys, patterns: patterns}
}

// Files returns the sorted, de-duplicated list of matching files.
func (s *FileSource) Files() ([]string, error) {
	var files []string
	for _, pattern := range s.patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("ingestion: invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(s.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("ingestion: glob %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Products implements Source.
func (s *FileSource) Products(ctx context.Context) ([]catalog.Product, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	var out []catalog.Product
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("ingestion: read %s: %w", name, err)
		}
		products, err := decodeProducts(raw)
		if err != nil {
			return nil, fmt.Errorf("ingestion: decode %s: %w", name, err)
		}
		out = append(out, products...)
	}
	return out, nil
}

func decodeProducts(raw []byte) ([]catalog.Product, error) {
	var many []catalog.Product
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one catalog.Product
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []catalog.Product{one}, nil
}

// MultiSource concatenates sources in order.
type MultiSource []Source

// Products implements Source.
func (m MultiSource) Products(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, src := range m {
		products, err := src.Products(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, products...)
	}
	return out, nil
}
