// Package cmd contains the CLI commands for the putusan service.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lexicon-id/putusan/internal/config"
	"github.com/lexicon-id/putusan/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "putusan",
	Short: "RAG chat service for Indonesia Supreme Court decisions",
	Long: `Putusan answers legal questions in Bahasa Indonesia, grounded in
indexed Indonesia Supreme Court decision summaries.

Run "putusan serve" to start the HTTP API, "putusan index" to rebuild
the vector store from the case database, or "putusan chat" for an
interactive session in the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates configuration, then installs a logger
// configured from it as the process default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.JSONLogs,
	})
	slog.SetDefault(logger)

	return cfg, logger, nil
}
