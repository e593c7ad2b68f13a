package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/match"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	topStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// NewMatchCmd constructs the `shopai match` command, which runs the
// storefront product match for one query and prints the ranking.
func NewMatchCmd() *cobra.Command {
	var showHTML bool

	cmd := &cobra.Command{
		Use:   "match [query]",
		Short: "Match a shopper query to a catalog product",
		Long: `Run the product match pipeline for one query: embed, search the vector
index, re-rank with the name bonus and pick the best product above 0.6.

Examples:
  shopai match "vợt yonex astrox 100"
  shopai match --html "lining axforce"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			emb, closeEmb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("match: %w", err)
			}
			defer func() { _ = closeEmb() }()

			idx, err := buildIndex(ctx, log, false)
			if err != nil {
				return fmt.Errorf("match: %w", err)
			}
			defer func() { _ = idx.Close() }()

			matcher, asm, err := buildMatcher(emb, idx)
			if err != nil {
				return fmt.Errorf("match: %w", err)
			}

			res, err := matcher.Match(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("match: %s: %w", match.ErrorKind(err), err)
			}
			renderMatch(cmd.OutOrStdout(), res, asm.Assemble(res), asm, showHTML)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHTML, "html", false, "Also print the product card HTML")
	return cmd
}

// renderMatch prints the outcome, the top product and the ranked list.
func renderMatch(w io.Writer, res *match.Result, p *match.Presentation, asm *match.Assembler, showHTML bool) {
	switch res.Outcome {
	case match.OutcomeEmptyQuery:
		fmt.Fprintln(w, missStyle.Render("Empty query"))
		return
	case match.OutcomeNoCandidates:
		fmt.Fprintln(w, missStyle.Render("No products found"))
		return
	}

	fmt.Fprintln(w, titleStyle.Render("Query: "+res.Query))
	if res.Top != nil {
		top := res.Top
		card := strings.Join([]string{
			hitStyle.Render(top.Item.Name),
			fmt.Sprintf("%sđ", match.FormatPrice(top.Item.Price)),
			fmt.Sprintf("score %.4f  total %.4f", match.Round4(top.Similarity), match.Round4(top.Total)),
			dimStyle.Render(asm.ProductURL(top.Item)),
		}, "\n")
		fmt.Fprintln(w, topStyle.Render(card))
	} else {
		fmt.Fprintln(w, missStyle.Render("No product matched the minimum score"))
	}

	for i, c := range res.Candidates {
		line := fmt.Sprintf("%2d. %-40s sim %.4f  bonus %.1f  total %.4f", i+1, c.Item.Name, match.Round4(c.Similarity), c.Bonus, match.Round4(c.Total))
		if c.Total < match.MinScore {
			line = dimStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}

	if showHTML && p.CardHTML != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.CardHTML)
	}
}
