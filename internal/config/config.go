// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.inklings/config.yaml)
//  3. Default values
//
// Sensitive data (the database password) is masked in MarshalJSON and
// String; use those for any logging of the configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidModelName indicates the generation model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder dimension does
	// not match the vector schema.
	ErrInvalidEmbedderDimension = errors.New("incompatible embedder dimension")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidChunking indicates the chunk size / overlap pair is unusable.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidRateLimit indicates the embedder rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid embedder rate limit")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model. Its
	// native output is wider; OutputDimensionality truncates to
	// VectorDimension to match the pgvector schema.
	DefaultEmbedderModel = "gemini-embedding-001"

	// VectorDimension is the width of every stored embedding. The
	// database schema is declared with this dimension; changing it
	// requires a migration and re-embedding everything.
	VectorDimension = 384
)

// Config stores application configuration. The database password is
// masked in MarshalJSON; keep that in sync when adding sensitive fields.
type Config struct {
	// Generation model for metadata derivation and inkling hatching.
	ModelName string `mapstructure:"model_name" json:"model_name"`

	// Embedder configuration.
	EmbedderModel    string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderQPS      int    `mapstructure:"embedder_qps" json:"embedder_qps"`
	ChunkMaxTokens   int    `mapstructure:"chunk_max_tokens" json:"chunk_max_tokens"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	EmbedderCacheLen int    `mapstructure:"embedder_cache_len" json:"embedder_cache_len"`

	// Storage configuration (see storage.go).
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".inklings")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("model_name", "gemini-2.5-flash")

	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedder_qps", 5)
	viper.SetDefault("chunk_max_tokens", 512)
	viper.SetDefault("chunk_overlap", 50)
	viper.SetDefault("embedder_cache_len", 1000)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "inklings")
	viper.SetDefault("postgres_password", "inklings_dev_password")
	viper.SetDefault("postgres_db_name", "inklings")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "INKLINGS_MODEL_NAME")
	mustBind("embedder_model", "INKLINGS_EMBEDDER_MODEL")
	mustBind("embedder_qps", "INKLINGS_EMBEDDER_QPS")
}

// Validate checks the configuration, failing fast with sentinel errors.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEmbedderModel)
	}
	if c.EmbedderQPS <= 0 || c.EmbedderQPS > 1000 {
		return fmt.Errorf("%w: %d", ErrInvalidRateLimit, c.EmbedderQPS)
	}
	if c.ChunkMaxTokens <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxTokens {
		return fmt.Errorf("%w: max_tokens=%d overlap=%d",
			ErrInvalidChunking, c.ChunkMaxTokens, c.ChunkOverlap)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPostgresDBName)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging: short secrets are fully
// masked, longer ones keep their first and last two characters for
// debug utility. This defends against accidental logging, nothing more.
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
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
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
