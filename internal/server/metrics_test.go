package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue returns the value of the counter named name whose label
// matches, or 0 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("want 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_MatchOutcomeCounted(t *testing.T) {
	t.Parallel()
	s, d := newTestServer(t)

	do(t, s, http.MethodGet, "/match/match_product?query=", "")
	do(t, s, http.MethodGet, "/match/match_product?query=yonex", "")

	if got := counterValue(t, d.reg, "shopai_match_requests_total", "outcome", "empty_query"); got != 1 {
		t.Errorf("empty_query = %v, want 1", got)
	}
	if got := counterValue(t, d.reg, "shopai_match_requests_total", "outcome", "no_candidates"); got != 1 {
		t.Errorf("no_candidates = %v, want 1", got)
	}
}

func Test_Metrics_HTTPRequestsByHandler(t *testing.T) {
	t.Parallel()
	s, d := newTestServer(t)

	do(t, s, http.MethodGet, "/api/health", "")
	do(t, s, http.MethodPost, "/sql/sql", `{}`)

	if got := counterValue(t, d.reg, "shopai_http_requests_total", labelHandler, "health"); got != 1 {
		t.Errorf("health requests = %v, want 1", got)
	}
	if got := counterValue(t, d.reg, "shopai_http_requests_total", "code", "400"); got != 1 {
		t.Errorf("400 responses = %v, want 1", got)
	}
}
