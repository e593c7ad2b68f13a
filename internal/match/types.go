// Package match implements the product-match pipeline behind the storefront
// search box: embed the shopper's query, retrieve nearby catalog items from the
// vector index, re-rank them with a lexical name bonus, and select the single
// best product above a fixed score threshold.
package match

import (
	"fmt"
	"strconv"
)

// CatalogItem is the product metadata stored alongside each vector.
type CatalogItem struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ProductID     string  `json:"product_id"`
	FeaturedImage string  `json:"featured_image"`
}

// Candidate is a catalog item returned by the vector index together with
// its retrieval distance and the scores derived from it.
type Candidate struct {
	Item CatalogItem

	// Distance is the raw dissimilarity reported by the index.
	Distance float64
	// Similarity is 1 - Distance, never clipped.
	Similarity float64
	// Bonus is the lexical name bonus: 0, 0.2 or 0.5.
	Bonus float64
	// Total is Similarity + Bonus.
	Total float64
}

// Outcome enumerates the terminal states of a match request.
type Outcome int

const (
	// OutcomeMatched means a top candidate met the threshold.
	OutcomeMatched Outcome = iota
	// OutcomeEmptyQuery means the query was blank after trimming.
	OutcomeEmptyQuery
	// OutcomeNoCandidates means the index returned nothing.
	OutcomeNoCandidates
	// OutcomeBelowThreshold means candidates existed but none scored high enough.
	OutcomeBelowThreshold
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeEmptyQuery:
		return "empty_query"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeBelowThreshold:
		return "below_threshold"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Match call.
type Result struct {
	// Query is the trimmed query text.
	Query string
	// Outcome says which terminal state was reached.
	Outcome Outcome
	// Candidates holds every scored candidate ordered by Total descending,
	// ties kept in retrieval order.
	Candidates []Candidate
	// Top is the selected best candidate, nil unless Outcome is OutcomeMatched.
	Top *Candidate
}

// ItemFromMetadata reads a CatalogItem out of a vector index payload. Missing
// or malformed fields yield zero values; a match response must never fail
// because the catalog payload is incomplete.
func ItemFromMetadata(meta map[string]any) CatalogItem {
	return CatalogItem{
		Name:          stringField(meta["name"]),
		Price:         floatField(meta["price"]),
		ProductID:     stringField(meta["product_id"]),
		FeaturedImage: stringField(meta["featured_image"]),
	}
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

func floatField(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
