package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexicon-id/putusan/internal/app"
	"github.com/lexicon-id/putusan/internal/rag"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the vector store from the case database",
	Long: `Index reads Supreme Court cases with English formatted summaries from
the case database, chunks and embeds their summaries, and rebuilds the
vector store from scratch. The existing collection is dropped first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger, AppVersion)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	splitter := rag.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	indexer := rag.NewIndexer(a.Cases, a.Store, splitter, a.Gate, logger)

	result, err := indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	count, err := a.Store.Count(ctx)
	if err != nil {
		logger.Warn("counting documents after indexing", "error", err)
	} else {
		a.Metrics.SetIndexedDocuments(count)
	}

	fmt.Printf("Indexed %d cases (%d skipped), %d chunks in %s\n",
		result.CasesIndexed, result.CasesSkipped, result.ChunksAdded, result.Duration.Round(time.Millisecond))
	return nil
}
