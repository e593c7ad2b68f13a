package match

import (
	"cmp"
	"slices"
)

// MinScore is the business threshold a candidate's total score must reach
// to be offered to the shopper.
const MinScore = 0.6

// Filter returns the candidates whose Total is at least threshold, in input order.
func Filter(cands []Candidate, threshold float64) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Total >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Rank returns a copy of cands sorted by Total descending. The sort is stable
// so equal totals keep their retrieval order.
func Rank(cands []Candidate) []Candidate {
	out := slices.Clone(cands)
	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmp.Compare(b.Total, a.Total)
	})
	return out
}

// Select picks the best candidate with Total >= MinScore, or nil.
func Select(cands []Candidate) *Candidate {
	passing := Rank(Filter(cands, MinScore))
	if len(passing) == 0 {
		return nil
	}
	top := passing[0]
	return &top
}
