package config

import (
	"fmt"
	"strconv"
)

// Validate checks settings shared by all commands (storage, chunking,
// retrieval, model). It does not require the Discord token; ingestion
// runs without one. Use ValidateBot before starting the bot.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}

	if c.CollectionName == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidCollection)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size=%d, must be positive", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap=%d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d, must be in [1, 50]", ErrInvalidTopK, c.TopK)
	}

	if c.MessageLimit <= 0 {
		return fmt.Errorf("%w: %d, must be positive", ErrInvalidMessageLimit, c.MessageLimit)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %s, must be in [0, 2]",
			ErrInvalidTemperature, strconv.FormatFloat(float64(c.Temperature), 'f', -1, 32))
	}

	return nil
}

// ValidateBot checks settings required to run the Discord bot on top of
// the shared validation.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DiscordToken == "" {
		return fmt.Errorf("%w: set DISCORD_BOT_TOKEN", ErrMissingBotToken)
	}
	return nil
}

// parsePort parses a TCP port string with range validation.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPostgresPort, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPostgresPort, port)
	}
	return port, nil
}
