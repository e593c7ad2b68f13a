package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/agent"
	"github.com/billshop/shopai-go/internal/config"
	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/provider"
	"github.com/billshop/shopai-go/internal/sales"
	"github.com/billshop/shopai-go/internal/server"
	"github.com/billshop/shopai-go/internal/tools"
	"github.com/billshop/shopai-go/internal/tracing"
)

// NewServeCmd constructs the `shopai serve` command, which starts the HTTP
// gateway.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shopai HTTP gateway",
		Long: `Start the shopai HTTP gateway.

Routes:
  GET  /match/match_product?query=...   storefront product match (also /match_product)
  POST /sql/sql                         read-only SQL assistant
  POST /sale-analysis                   rule-based inventory report
  POST /sale-analysis/ai                LLM-written inventory report
  GET  /api/health, /api/ready, /metrics

Product match needs only the embedder and the vector index. When the
database or the LLM cannot be reached at startup, the routes that need them
answer 503 and the rest keep working.

Examples:
  shopai serve
  shopai serve --port 9090
  VECTOR_BACKEND=chroma shopai serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			flush, traced := tracing.Install(tracing.ConfigFromEnv())
			defer flush()
			log.Info("langfuse tracing", slog.Bool("enabled", traced))

			emb, closeEmb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = closeEmb() }()

			idx, err := buildIndex(ctx, log, false)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = idx.Close() }()

			matcher, asm, err := buildMatcher(emb, idx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			svc := server.Services{Matcher: matcher, Assembler: asm}
			pingers := []server.Pinger{idx}

			cat, err := buildCatalog(ctx, log)
			if err != nil {
				log.Warn("serve: catalog database unavailable, /sql and /sale-analysis disabled", slog.Any("error", err))
			} else {
				defer func() { _ = cat.Close() }()
				svc.Sales = sales.NewAnalyzer(cat)
				pingers = append(pingers, cat)
			}

			chatModel, providerCfg, err := provider.NewFromEnv(ctx)
			if err != nil {
				log.Warn("serve: model provider unavailable, LLM routes disabled", slog.Any("error", err))
			} else {
				log.Info("provider initialised",
					slog.String("provider", string(providerCfg.Backend)),
					slog.String("model", providerCfg.ModelName()),
				)
				pingers = append(pingers, server.NewLLMPinger(chatModel, provider.NewHealthCheck(providerCfg), string(providerCfg.Backend)))
			}

			if cat != nil && chatModel != nil {
				history, closeHistory := openHistory(log)
				defer closeHistory()

				assistant, err := newSQLAssistant(chatModel, cat, history)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				svc.SQL = assistant

				analyst, err := agent.New(ctx, &agent.Config{ChatModel: chatModel, Tools: tools.All(cat)})
				if err != nil {
					return fmt.Errorf("serve: failed to initialise sale analyst: %w", err)
				}
				svc.Analyst = analyst
			}

			if host == "" {
				host = config.String("SHOPAI_HOST", "0.0.0.0")
			}
			if port == 0 {
				port = config.Int("SHOPAI_PORT", 5068)
			}
			srv, err := server.New(svc, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("SHOPAI_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: $SHOPAI_HOST or 0.0.0.0)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: $SHOPAI_PORT or 5068)")

	return cmd
}
