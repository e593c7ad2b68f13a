package commands

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/ingestion"
	"github.com/billshop/shopai-go/internal/logging"
)

// NewIngestCmd constructs the `shopai ingest` command, which embeds catalog
// products and upserts them into the vector index the matcher searches.
func NewIngestCmd() *cobra.Command {
	var (
		patterns  []string
		fromDB    bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed catalog products into the vector index",
		Long: `Read products from the shop database and/or exported JSON files, embed
one short text per product and upsert the vectors into the configured
collection. Missing Qdrant collections are created with the embedding
model's dimension. Product IDs map to stable point IDs, so re-running
ingest updates products in place.

Examples:
  shopai ingest --from-db
  shopai ingest --files "exports/**/*.json"
  shopai ingest --from-db --files "extra/*.json" --batch-size 32`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !fromDB && len(patterns) == 0 {
				return fmt.Errorf("ingest: nothing to read, pass --from-db and/or --files")
			}
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			var src ingestion.MultiSource
			if fromDB {
				cat, err := buildCatalog(ctx, log)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				defer func() { _ = cat.Close() }()
				src = append(src, cat)
			}
			if len(patterns) > 0 {
				files := ingestion.NewFileSource(os.DirFS("."), patterns...)
				names, err := files.Files()
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				log.Info("ingest: matched export files", slog.Int("files", len(names)))
				src = append(src, files)
			}

			emb, closeEmb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = closeEmb() }()

			idx, err := buildIndex(ctx, log, true)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = idx.Close() }()

			pipeline, err := ingestion.NewPipeline(emb, idx, &ingestion.Config{BatchSize: batchSize})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			start := time.Now()
			stats, err := pipeline.Run(ctx, src, newProgressBar())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nIngestion complete in %s:\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "  Products read:     %d\n", stats.Read)
			fmt.Fprintf(out, "  Products skipped:  %d (no name)\n", stats.Skipped)
			fmt.Fprintf(out, "  Points upserted:   %d\n", stats.Upserted)
			fmt.Fprintf(out, "  Index:             %s\n", idx.Name())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "files", nil, "Glob patterns (** supported) of product JSON exports, relative to the working directory")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "Read products from the shop database")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "Products embedded per request")
	return cmd
}

// newProgressBar returns an ingestion.Progress that draws a bar on stderr,
// created once the total is known.
func newProgressBar() ingestion.Progress {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total == 0 {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		_ = bar.Set(done)
	}
}
