// Package config loads service configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName is used for the default config file name (cv-matcher.yaml)
const AppName = "cv-matcher"

// Supported LLM providers
const (
	ProviderGemini = "gemini"
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// Config is the full service configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	LLM         LLMConfig      `mapstructure:"llm"`
	Fetch       FetchConfig    `mapstructure:"fetch"`
	Archive     ArchiveConfig  `mapstructure:"archive"`
	Retry       RetryConfig    `mapstructure:"retry"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int   `mapstructure:"port"`
	MaxUploadBytes int64 `mapstructure:"max-upload-bytes"`
	MaxFiles       int   `mapstructure:"max-files"`
}

// DatabaseConfig configures the PostgreSQL pool
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConns       int32         `mapstructure:"max-conns"`
	MinConns       int32         `mapstructure:"min-conns"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
}

// LLMConfig selects and configures the matching model
type LLMConfig struct {
	Provider        string  `mapstructure:"provider"`
	Model           string  `mapstructure:"model"` // empty keeps the provider default
	Temperature     float32 `mapstructure:"temperature"`
	GeminiAPIKey    string  `mapstructure:"gemini-api-key"`
	OpenAIAPIKey    string  `mapstructure:"openai-api-key"`
	AzureAPIKey     string  `mapstructure:"azure-api-key"`
	AzureEndpoint   string  `mapstructure:"azure-endpoint"`
	AzureAPIVersion string  `mapstructure:"azure-api-version"`
}

// FetchConfig configures job listing retrieval
type FetchConfig struct {
	WhozAPIBase string        `mapstructure:"whoz-api-base"`
	UseBrowser  bool          `mapstructure:"use-browser"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig configures the optional GCS profile archive.
// Archiving is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// RetryConfig configures retries of transient database failures
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
	Step     time.Duration `mapstructure:"step"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"environment":           "ENVIRONMENT",
	"server.port":           "PORT",
	"database.url":          "DATABASE_URL",
	"llm.provider":          "LLM_PROVIDER",
	"llm.model":             "LLM_MODEL",
	"llm.gemini-api-key":    "GEMINI_API_KEY",
	"llm.openai-api-key":    "OPENAI_API_KEY",
	"llm.azure-api-key":     "AZURE_OPENAI_API_KEY",
	"llm.azure-endpoint":    "AZURE_OPENAI_ENDPOINT",
	"llm.azure-api-version": "AZURE_OPENAI_API_VERSION",
	"fetch.whoz-api-base":   "WHOZ_API_BASE",
	"fetch.use-browser":     "USE_BROWSER",
	"archive.bucket":        "CV_BUCKET_NAME",
	"retry.attempts":        "RETRY_ATTEMPTS",
	"retry.delay":           "RETRY_DELAY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max-upload-bytes", 32<<20)
	v.SetDefault("server.max-files", 5)
	v.SetDefault("database.max-conns", 15)
	v.SetDefault("database.min-conns", 2)
	v.SetDefault("database.connect-timeout", 30*time.Second)
	v.SetDefault("llm.provider", ProviderAzure)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.azure-api-version", "2024-08-01-preview")
	v.SetDefault("fetch.whoz-api-base", "https://app.whoz.com")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 5*time.Second)
	v.SetDefault("retry.step", 500*time.Millisecond)
}

// Load reads configuration. When path is empty, cv-matcher.yaml in the
// working directory is used if present; a missing default file is not an
// error. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	return &cfg, nil
}

// Validate checks value ranges and the LLM provider name.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxFiles <= 0 {
		return fmt.Errorf("config error: 'server.max-files' must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("config error: 'server.max-upload-bytes' must be positive")
	}
	if c.Database.MinConns < 0 || c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("config error: 'database.max-conns' must be >= 'database.min-conns' >= 0")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("config error: 'retry.attempts' must be at least 1")
	}
	if c.Retry.Delay < 0 || c.Retry.Step < 0 {
		return fmt.Errorf("config error: retry delays must be non-negative")
	}

	switch c.LLM.Provider {
	case ProviderGemini, ProviderAzure, ProviderOpenAI:
	default:
		return fmt.Errorf("config error: unknown llm provider %q", c.LLM.Provider)
	}

	if c.Fetch.WhozAPIBase != "" {
		if u, err := url.Parse(c.Fetch.WhozAPIBase); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'fetch.whoz-api-base' must be an absolute URL")
		}
	}

	return nil
}

// ValidateServe additionally requires everything the HTTP service needs:
// a database and credentials for the selected LLM provider.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}

	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("config error: GEMINI_API_KEY is required for provider %s", c.LLM.Provider)
		}
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("config error: OPENAI_API_KEY is required for provider %s", c.LLM.Provider)
		}
	case ProviderAzure:
		if c.LLM.AzureAPIKey == "" || c.LLM.AzureEndpoint == "" {
			return fmt.Errorf("config error: AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT are required for provider %s", c.LLM.Provider)
		}
	}

	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
