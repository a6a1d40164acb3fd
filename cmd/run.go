package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helpmate-bot/helpmate/internal/app"
	"github.com/helpmate-bot/helpmate/internal/bot"
	"github.com/helpmate-bot/helpmate/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Discord bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runBot starts the bot and blocks until SIGINT or SIGTERM.
func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting helpmate", "version", AppVersion)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("validating config: %w", err)
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

	count, err := a.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking knowledge base: %w", err)
	}
	if count == 0 {
		logger.Warn("knowledge base is empty, run 'helpmate ingest' to index documents",
			"collection", cfg.CollectionName)
	} else {
		logger.Info("knowledge base ready", "collection", cfg.CollectionName, "documents", count)
	}

	b, err := bot.New(cfg.DiscordToken, a.Pipeline, cfg.MessageLimit, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}
	if err := b.Start(); err != nil {
		return fmt.Errorf("connecting to Discord: %w", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Warn("disconnect error", "error", closeErr)
		}
	}()

	logger.Info("bot is running, press Ctrl+C to exit")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
