// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (secrets and runtime overrides)
//  2. Config file (~/.helpmate/config.yaml or ./config.yaml)
//  3. Default values
//
// Secrets (bot token, API key, database password) are only ever read from the
// environment and are masked in String()/MarshalJSON output.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingBotToken indicates DISCORD_BOT_TOKEN is not set.
	ErrMissingBotToken = errors.New("missing Discord bot token")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing Gemini API key")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidCollection indicates the collection name is empty.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunk size/overlap")

	// ErrInvalidTopK indicates the similarity-search k is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidMessageLimit indicates the platform message limit is non-positive.
	ErrInvalidMessageLimit = errors.New("invalid message limit")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")
)

const (
	// DefaultModelName is the Gemini model used for answer synthesis.
	DefaultModelName = "gemini-2.5-flash-lite"

	// DefaultEmbedderModel is the Gemini embedding model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768; the documents schema uses 768 (knowledge.VectorDim).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMessageLimit is Discord's per-message character limit.
	// Kept as configuration so deployments against other limits don't
	// need a rebuild.
	DefaultMessageLimit = 2000
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// Discord
	DiscordToken string `mapstructure:"discord_token" json:"discord_token"` // SENSITIVE: masked in MarshalJSON
	MessageLimit int    `mapstructure:"message_limit" json:"message_limit"`

	// AI provider
	GeminiAPIKey  string  `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Knowledge base / retrieval
	CollectionName string `mapstructure:"collection_name" json:"collection_name"`
	KnowledgePath  string `mapstructure:"knowledge_path" json:"knowledge_path"`
	ChunkSize      int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK           int    `mapstructure:"top_k" json:"top_k"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".helpmate")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the discrete PostgreSQL fields.
	if err := cfg.applyDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("message_limit", DefaultMessageLimit)

	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.3)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "admin")
	v.SetDefault("postgres_db_name", "helpmate")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("collection_name", "streamlit_docs")
	v.SetDefault("knowledge_path", "data/streamlit_docs")
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 150)
	v.SetDefault("top_k", 4)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are env-only so they never end up in a config file by accident.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("discord_token", "DISCORD_BOT_TOKEN")
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("postgres_password", "POSTGRES_PASSWORD")

	mustBind("model_name", "HELPMATE_MODEL_NAME")
	mustBind("embedder_model", "HELPMATE_EMBEDDER_MODEL")
	mustBind("collection_name", "HELPMATE_COLLECTION")
	mustBind("knowledge_path", "HELPMATE_KNOWLEDGE_PATH")
	mustBind("message_limit", "HELPMATE_MESSAGE_LIMIT")
	mustBind("top_k", "HELPMATE_TOP_K")
}

// applyDatabaseURL overrides the discrete PostgreSQL fields from a
// postgres:// URL, when one is provided.
func (c *Config) applyDatabaseURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := parsePort(p)
		if err != nil {
			return err
		}
		c.PostgresPort = port
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := filepath.Base(u.Path); db != "." && db != "/" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}

	return nil
}

// PostgresURL returns the connection URL for migrations and pgxpool.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for
// debuggability.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DiscordToken = maskSecret(a.DiscordToken)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
