package match

import "strings"

// Lexical bonus weights.
const (
	// ExactNameBonus applies when the whole product name appears in the query.
	ExactNameBonus = 0.5
	// ReducedNameBonus applies when the name minus its " pro" suffix appears.
	ReducedNameBonus = 0.2
)

// Normalize lowercases s and collapses every whitespace run to a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// LexicalBonus returns the bonus a product name earns against a query. Both
// arguments are normalized before comparison. Every occurrence of " pro" is
// stripped for the reduced check, so "yonex pro pro" reduces to "yonex".
func LexicalBonus(query, name string) float64 {
	q := Normalize(query)
	n := Normalize(name)
	if strings.Contains(q, n) {
		return ExactNameBonus
	}
	if strings.Contains(q, strings.ReplaceAll(n, " pro", "")) {
		return ReducedNameBonus
	}
	return 0
}

// Hit is one raw retrieval result handed to Score.
type Hit struct {
	Item     CatalogItem
	Distance float64
}

// Score turns raw hits into candidates, preserving retrieval order. It is a
// pure function of its inputs.
func Score(query string, hits []Hit) []Candidate {
	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		sim := 1 - h.Distance
		bonus := LexicalBonus(query, h.Item.Name)
		out = append(out, Candidate{
			Item:       h.Item,
			Distance:   h.Distance,
			Similarity: sim,
			Bonus:      bonus,
			Total:      sim + bonus,
		})
	}
	return out
}
