package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/billshop/shopai-go/internal/match"
	"github.com/billshop/shopai-go/internal/sales"
	"github.com/billshop/shopai-go/internal/sqlagent"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0).
	Host string
	// Port is the TCP port to listen on (default: 5068).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. LLM
	// backed endpoints need minutes.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the public
	// and admin endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the admin endpoints (/sql/*,
	// /sale-analysis*). If empty, authentication is disabled.
	APIKey string
	// AllowedOrigins feeds the CORS middleware (default: all origins).
	AllowedOrigins []string
	// MetricsRegistry receives the server metrics. Defaults to a fresh
	// registry carrying the Go and process collectors.
	MetricsRegistry *prometheus.Registry
}

// Matcher resolves a shopper query to a product.
type Matcher interface {
	Match(ctx context.Context, query string) (*match.Result, error)
}

// SQLAssistant answers natural-language questions from the shop database.
type SQLAssistant interface {
	Ask(ctx context.Context, req sqlagent.Request) (*sqlagent.Response, error)
}

// SaleAnalyzer builds the rule-based sale report.
type SaleAnalyzer interface {
	Validate(req sales.Request) error
	Analyze(ctx context.Context, req sales.Request) (*sales.Report, error)
}

// SaleAnalyst writes a free-text sale report with an LLM.
type SaleAnalyst interface {
	Analyze(ctx context.Context, req sales.Request) (string, error)
}

// Services are the domain handlers behind the HTTP routes. A nil field
// leaves its routes answering 503.
type Services struct {
	Matcher   Matcher
	Assembler *match.Assembler
	SQL       SQLAssistant
	Sales     SaleAnalyzer
	Analyst   SaleAnalyst
}

// Server is the shopai HTTP gateway.
type Server struct {
	svc        Services
	cfg        *Config
	httpServer *http.Server
	handler    http.Handler
	log        *slog.Logger
	pingers    []Pinger
	metrics    *serverMetrics
	validate   *validator.Validate
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// errorResponse is the body of every non-2xx JSON reply, and of the 200
// replies that report an empty outcome.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
