// Package server exposes the shop tools over HTTP: product match for the
// storefront search box, the SQL assistant, and sale analysis, plus health,
// readiness and Prometheus endpoints. It is started by `shopai serve`.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/version"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// New constructs a Server from the domain services and config.
func New(svc Services, cfg *Config) (*Server, error) {
	if svc.Matcher == nil {
		return nil, errors.New("server: matcher must not be nil")
	}
	if svc.Assembler == nil {
		return nil, errors.New("server: assembler must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 5068
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.MetricsRegistry == nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		cfg.MetricsRegistry = reg
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		svc:      svc,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop

	if cfg.APIKey == "" {
		log.Warn("server: SHOPAI_API_KEY not set, admin endpoints are unauthenticated")
	}
	public := func(h http.HandlerFunc) http.Handler { return rl.middleware(h) }
	admin := func(h http.HandlerFunc) http.Handler { return rl.middleware(authMiddleware(cfg.APIKey, h)) }

	mux := http.NewServeMux()
	s.route(mux, "GET /match/match_product", "match", public(s.handleMatch))
	s.route(mux, "GET /match_product", "match", public(s.handleMatch))
	s.route(mux, "POST /sql/sql", "sql", admin(s.handleSQL))
	s.route(mux, "POST /sql", "sql", admin(s.handleSQL))
	s.route(mux, "POST /sale-analysis", "sale_analysis", admin(s.handleSaleAnalysis))
	s.route(mux, "POST /sale-analysis/ai", "sale_analysis_ai", admin(s.handleSaleAnalysisAI))
	s.route(mux, "GET /api/health", "health", http.HandlerFunc(s.handleHealth))
	s.route(mux, "GET /api/ready", "ready", http.HandlerFunc(s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{}))

	corsMW := cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})
	s.handler = requestLogger(log, recoverer(corsMW(mux)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s, nil
}

// route registers h under pattern, instrumented with the given metric name.
func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.Handler) {
	mux.Handle(pattern, s.metrics.instrument(name, h))
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// writeJSON encodes v with the given status. Encoding errors are logged;
// the header is already sent by then.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logging.FromContext(ctx).Error("server: encode response", slog.Any("error", err))
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst as is, so
// callers can pre-fill defaults.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// unavailable answers for a route whose service was not configured.
func unavailable(w http.ResponseWriter, r *http.Request, what string) {
	writeJSON(r.Context(), w, http.StatusServiceUnavailable, errorResponse{
		Message: what + " is not configured on this server",
	})
}

// badRequest reports a malformed or invalid body.
func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: err.Error()})
}
