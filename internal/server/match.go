package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/match"
)

const (
	msgEmptyQuery     = "Empty query"
	msgNoProducts     = "No products found"
	msgBelowThreshold = "No product matched the minimum score "
)

// topMatch is the selected product in a successful match response.
type topMatch struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ProductID     string  `json:"product_id"`
	FeaturedImage string  `json:"featured_image"`
	Score         float64 `json:"score"`
	TotalScore    float64 `json:"total_score"`
}

// matchResponse is the success body of GET /match/match_product.
type matchResponse struct {
	Success         bool     `json:"success"`
	TopMatch        topMatch `json:"top_match"`
	MatchedProducts []string `json:"matched_products"`
	CardHTML        string   `json:"card_html"`
}

// belowThresholdResponse keeps the storefront's existing shape for the
// no-match case: top_match carries a message string instead of an object.
type belowThresholdResponse struct {
	Success  bool   `json:"success"`
	TopMatch string `json:"top_match"`
}

// handleMatch handles GET /match/match_product?query=...
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	res, err := s.svc.Matcher.Match(ctx, r.URL.Query().Get("query"))
	if err != nil {
		s.metrics.matchRequestsTotal.WithLabelValues("error").Inc()
		s.internalError(w, r, err)
		return
	}
	s.metrics.matchRequestsTotal.WithLabelValues(res.Outcome.String()).Inc()
	s.metrics.matchDurationSeconds.WithLabelValues(res.Outcome.String()).Observe(time.Since(start).Seconds())

	switch res.Outcome {
	case match.OutcomeEmptyQuery:
		writeJSON(ctx, w, http.StatusOK, errorResponse{Message: msgEmptyQuery})
		return
	case match.OutcomeNoCandidates:
		writeJSON(ctx, w, http.StatusOK, errorResponse{Message: msgNoProducts})
		return
	case match.OutcomeBelowThreshold:
		writeJSON(ctx, w, http.StatusOK, belowThresholdResponse{TopMatch: msgBelowThreshold})
		return
	}

	top := res.Top
	p := s.svc.Assembler.Assemble(res)
	logging.FromContext(ctx).Info("match: top product",
		slog.String("name", top.Item.Name),
		slog.Float64("total_score", match.Round4(top.Total)),
		slog.Int("candidates", len(res.Candidates)),
	)
	writeJSON(ctx, w, http.StatusOK, matchResponse{
		Success: true,
		TopMatch: topMatch{
			Name:          top.Item.Name,
			Price:         top.Item.Price,
			ProductID:     top.Item.ProductID,
			FeaturedImage: top.Item.FeaturedImage,
			Score:         match.Round4(top.Similarity),
			TotalScore:    match.Round4(top.Total),
		},
		MatchedProducts: p.MatchedProducts,
		CardHTML:        p.CardHTML,
	})
}

// internalError logs an upstream failure with its kind and error chain and
// answers 500 {success:false, message:"Internal error: <kind>", details}.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	kind := match.ErrorKind(err)
	attrs := []any{
		slog.String("kind", kind),
		slog.Any("error", err),
		slog.Any("error_chain", match.ErrorChain(err)),
	}
	var se *match.StageError
	if errors.As(err, &se) {
		attrs = append(attrs, slog.String("stage", string(se.Stage)))
	}
	logging.FromContext(r.Context()).Error("upstream failure", attrs...)
	s.metrics.upstreamErrorsTotal.WithLabelValues(kind).Inc()

	writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{
		Message: "Internal error: " + kind,
		Details: err.Error(),
	})
}
