package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helpmate-bot/helpmate/internal/app"
	"github.com/helpmate-bot/helpmate/internal/config"
	"github.com/helpmate-bot/helpmate/internal/ingest"
)

var (
	ingestPath  string
	ingestClear bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index documents into the knowledge base",
	Long: `Ingest walks a directory of documentation files, splits each file into
overlapping chunks, embeds them, and stores them in the knowledge base.
Re-running ingest on the same files updates them in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context())
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestPath, "path", "p", "", "directory to index (defaults to knowledge_path from config)")
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "delete the collection before indexing")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	path := ingestPath
	if path == "" {
		path = cfg.KnowledgePath
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if ingestClear {
		deleted, err := a.Store.Clear(ctx)
		if err != nil {
			return fmt.Errorf("clearing collection: %w", err)
		}
		logger.Info("cleared collection", "collection", cfg.CollectionName, "deleted", deleted)
	}

	indexer, err := ingest.New(a.Store, ingest.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}

	result, err := indexer.AddDirectory(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	fmt.Printf("Indexed %s in %s\n", path, result.Duration.Round(time.Millisecond))
	fmt.Printf("  Files added:   %d\n", result.FilesAdded)
	fmt.Printf("  Files skipped: %d\n", result.FilesSkipped)
	fmt.Printf("  Files failed:  %d\n", result.FilesFailed)
	fmt.Printf("  Chunks added:  %d\n", result.ChunksAdded)

	count, err := a.Store.Count(ctx)
	if err == nil {
		fmt.Printf("  Collection %q now holds %d documents\n", cfg.CollectionName, count)
	}
	return nil
}
