package server

import (
	"net/http"

	"github.com/billshop/shopai-go/internal/sqlagent"
)

// sqlResponse is the body of POST /sql/sql.
type sqlResponse struct {
	Answer string `json:"answer"`
}

// handleSQL handles POST /sql/sql: {query, email?, top_product?} -> {answer}.
func (s *Server) handleSQL(w http.ResponseWriter, r *http.Request) {
	if s.svc.SQL == nil {
		unavailable(w, r, "SQL assistant")
		return
	}
	var req sqlagent.Request
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		badRequest(w, r, err)
		return
	}

	resp, err := s.svc.SQL.Ask(r.Context(), req)
	if err != nil {
		s.metrics.sqlRequestsTotal.WithLabelValues("error").Inc()
		s.internalError(w, r, err)
		return
	}
	s.metrics.sqlRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(r.Context(), w, http.StatusOK, sqlResponse{Answer: resp.Answer})
}
