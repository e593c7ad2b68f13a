package server

import (
	"net/http"

	"github.com/billshop/shopai-go/internal/sales"
)

// saleReportResponse is the body of POST /sale-analysis.
type saleReportResponse struct {
	Report *sales.Report `json:"report"`
}

// saleTextResponse is the body of POST /sale-analysis/ai.
type saleTextResponse struct {
	Report string `json:"report"`
}

// handleSaleAnalysis handles POST /sale-analysis. Missing body fields take
// their defaults (30 days, high 30, low 5).
func (s *Server) handleSaleAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sales == nil {
		unavailable(w, r, "sale analysis")
		return
	}
	req, ok := s.saleRequest(w, r)
	if !ok {
		return
	}
	report, err := s.svc.Sales.Analyze(r.Context(), req)
	if err != nil {
		s.metrics.saleReportsTotal.WithLabelValues("rules", "error").Inc()
		s.internalError(w, r, err)
		return
	}
	s.metrics.saleReportsTotal.WithLabelValues("rules", "ok").Inc()
	writeJSON(r.Context(), w, http.StatusOK, saleReportResponse{Report: report})
}

// handleSaleAnalysisAI handles POST /sale-analysis/ai, where the LLM analyst
// inspects the database with read-only tools and writes the report.
func (s *Server) handleSaleAnalysisAI(w http.ResponseWriter, r *http.Request) {
	if s.svc.Analyst == nil || s.svc.Sales == nil {
		unavailable(w, r, "AI sale analysis")
		return
	}
	req, ok := s.saleRequest(w, r)
	if !ok {
		return
	}
	text, err := s.svc.Analyst.Analyze(r.Context(), req)
	if err != nil {
		s.metrics.saleReportsTotal.WithLabelValues("ai", "error").Inc()
		s.internalError(w, r, err)
		return
	}
	s.metrics.saleReportsTotal.WithLabelValues("ai", "ok").Inc()
	writeJSON(r.Context(), w, http.StatusOK, saleTextResponse{Report: text})
}

// saleRequest decodes and validates the shared request body. It writes the
// 400 itself and reports false on failure.
func (s *Server) saleRequest(w http.ResponseWriter, r *http.Request) (sales.Request, bool) {
	req := sales.DefaultRequest()
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return req, false
	}
	if err := s.svc.Sales.Validate(req); err != nil {
		badRequest(w, r, err)
		return req, false
	}
	return req, true
}
