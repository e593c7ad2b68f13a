package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/agent"
	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/provider"
	"github.com/billshop/shopai-go/internal/sales"
	"github.com/billshop/shopai-go/internal/tools"
	"github.com/billshop/shopai-go/internal/tracing"
)

// NewSalesCmd constructs the `shopai sales` command, which prints the
// inventory report: rule-based JSON by default, LLM-written text with --ai.
func NewSalesCmd() *cobra.Command {
	req := sales.DefaultRequest()
	var useAI bool

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Report slow-moving and near out-of-stock products",
		Long: `Build the sale analysis report from current inventory levels.

Without --ai the report is the rule-based JSON served by POST /sale-analysis.
With --ai an LLM analyst inspects the database through read-only tools and
writes a Vietnamese report, as served by POST /sale-analysis/ai.

Examples:
  shopai sales
  shopai sales --high 50 --low 3
  shopai sales --ai`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			analyzer := sales.NewAnalyzer(nil)
			if err := analyzer.Validate(req); err != nil {
				return fmt.Errorf("sales: %w", err)
			}

			cat, err := buildCatalog(ctx, log)
			if err != nil {
				return fmt.Errorf("sales: %w", err)
			}
			defer func() { _ = cat.Close() }()

			out := cmd.OutOrStdout()
			if !useAI {
				report, err := sales.NewAnalyzer(cat).Analyze(ctx, req)
				if err != nil {
					return fmt.Errorf("sales: %w", err)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(map[string]any{"report": report})
			}

			flush, _ := tracing.Install(tracing.ConfigFromEnv())
			defer flush()

			chatModel, _, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("sales: failed to initialise model provider: %w", err)
			}
			analyst, err := agent.New(ctx, &agent.Config{ChatModel: chatModel, Tools: tools.All(cat)})
			if err != nil {
				return fmt.Errorf("sales: %w", err)
			}
			text, err := analyst.Analyze(ctx, req)
			if err != nil {
				return fmt.Errorf("sales: %w", err)
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.WindowDays, "days", req.WindowDays, "Analysis window in days")
	cmd.Flags().IntVar(&req.HighStockThreshold, "high", req.HighStockThreshold, "Stock level at which a product counts as slow-moving")
	cmd.Flags().IntVar(&req.LowStockThreshold, "low", req.LowStockThreshold, "Stock level at or below which a product is near out of stock")
	cmd.Flags().BoolVar(&useAI, "ai", false, "Let the LLM analyst write the report")
	return cmd
}
