package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/provider"
	"github.com/billshop/shopai-go/internal/sqlagent"
	"github.com/billshop/shopai-go/internal/tracing"
)

// NewAskCmd constructs the `shopai ask` command, which sends one question to
// the read-only SQL assistant and prints the answer.
func NewAskCmd() *cobra.Command {
	var email, topProduct string
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the SQL assistant a question about the shop data",
		Long: `Ask the read-only SQL assistant a question. The model writes one SELECT,
the guard checks it, the database runs it and the model phrases the answer
in Vietnamese. Order questions require --email and only see that
shopper's orders.

Examples:
  shopai ask "có bao nhiêu sản phẩm thương hiệu Yonex?"
  shopai ask --email an@example.vn "đơn hàng 1024 đang ở trạng thái nào?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			flush, _ := tracing.Install(tracing.ConfigFromEnv())
			defer flush()

			chatModel, providerCfg, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}
			log.Debug("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			cat, err := buildCatalog(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = cat.Close() }()

			history, closeHistory := openHistory(log)
			defer closeHistory()

			assistant, err := newSQLAssistant(chatModel, cat, history)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			resp, err := assistant.Ask(ctx, sqlagent.Request{
				Query:      strings.Join(args, " "),
				Email:      email,
				TopProduct: topProduct,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			if showSQL && resp.SQL != "" {
				fmt.Fprintf(out, "-- %s\n", resp.SQL)
			}
			fmt.Fprintln(out, resp.Answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Shopper email; required for order questions")
	cmd.Flags().StringVar(&topProduct, "top-product", "", "Product the shopper is looking at")
	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "Print the SQL that ran")
	return cmd
}
