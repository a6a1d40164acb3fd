// Package cmd wires the helpmate command line interface.
package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helpmate-bot/helpmate/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "helpmate",
	Short: "Helpmate - Discord support bot for Streamlit questions",
	Long: `Helpmate answers Streamlit questions on Discord. Mention the bot in a
message and it retrieves the most relevant documentation passages from its
knowledge base and generates a grounded answer.

Running helpmate with no arguments starts the bot.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

// Execute runs the root command. Called from main.
func Execute() error {
	logger := initLogger()
	slog.SetDefault(logger)
	return rootCmd.Execute()
}

// initLogger builds the process logger from the environment.
// HELPMATE_LOG_LEVEL sets the level (debug, info, warn, error) and
// HELPMATE_LOG_JSON=true switches to JSON output.
func initLogger() log.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("HELPMATE_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("HELPMATE_LOG_JSON") == "true",
	})
}
