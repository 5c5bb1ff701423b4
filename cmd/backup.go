package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexicon-id/putusan/internal/app"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the vector store into a tar.gz archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup()
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore the vector store from a snapshot archive",
	Long: `Restore replaces the local vector store with the contents of a
snapshot archive. Run it while the service is stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestore(args[0])
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runBackup() error {
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

	result, err := a.Backup.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}

	fmt.Printf("Snapshot written to %s (%d documents, %d bytes)\n",
		result.ArchivePath, result.Documents, result.SizeBytes)
	return nil
}

func runRestore(archivePath string) error {
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

	if err := a.Backup.Restore(ctx, archivePath); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}

	fmt.Printf("Vector store restored from %s\n", archivePath)
	return nil
}
