package main

import (
	"context"
	"fmt"

	"github.com/jonathan/cv-matcher/internal/config"
	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/jonathan/cv-matcher/internal/fetch"
	"github.com/jonathan/cv-matcher/internal/llm"
	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/retry"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}

// llmSettings maps the service configuration onto a model client config and
// the API key of the selected provider.
func llmSettings(cfg *config.Config) (*llm.Config, string, error) {
	provider := llm.Provider(cfg.LLM.Provider)
	llmCfg := llm.ConfigFor(provider)
	if llmCfg == nil {
		return nil, "", fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "" {
		llmCfg = llmCfg.WithAllModels(cfg.LLM.Model)
	}
	if cfg.LLM.Temperature > 0 {
		llmCfg.Temperature = cfg.LLM.Temperature
	}

	var apiKey string
	switch provider {
	case llm.ProviderGemini:
		apiKey = cfg.LLM.GeminiAPIKey
	case llm.ProviderOpenAI:
		apiKey = cfg.LLM.OpenAIAPIKey
	case llm.ProviderAzure:
		apiKey = cfg.LLM.AzureAPIKey
		llmCfg.Endpoint = cfg.LLM.AzureEndpoint
		if cfg.LLM.AzureAPIVersion != "" {
			llmCfg.APIVersion = cfg.LLM.AzureAPIVersion
		}
	}
	return llmCfg, apiKey, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	llmCfg, apiKey, err := llmSettings(cfg)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llmCfg, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return client, nil
}

func newListingFetcher(cfg *config.Config, log *zap.Logger) *fetch.ListingFetcher {
	return fetch.NewListingFetcher(fetch.ListingFetcherConfig{
		WhozAPIBase: cfg.Fetch.WhozAPIBase,
		UseBrowser:  cfg.Fetch.UseBrowser,
		Timeout:     cfg.Fetch.Timeout,
		Logger:      log,
	})
}

func retryPolicy(cfg *config.Config, log *zap.Logger) retry.Policy {
	return retry.Policy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Step:     cfg.Retry.Step,
		Logger:   log,
	}
}

func dbOptions(cfg *config.Config) db.Options {
	opts := db.DefaultOptions()
	if cfg.Database.MaxConns > 0 {
		opts.MaxConns = cfg.Database.MaxConns
	}
	opts.MinConns = cfg.Database.MinConns
	if cfg.Database.ConnectTimeout > 0 {
		opts.ConnectTimeout = cfg.Database.ConnectTimeout
	}
	return opts
}

func connectDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	database, err := db.ConnectWithOptions(ctx, cfg.Database.URL, dbOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}
