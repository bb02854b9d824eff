// Package llm provides model configuration and client abstractions for the
// providers the matcher can talk to.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short summaries
	TierLite ModelTier = "lite"
	// TierStandard is for structured output such as match verdicts
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or difficult comparisons
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAzure is Azure OpenAI, addressed by deployment name
	ProviderAzure Provider = "azure"
	// ProviderOpenAI is the public OpenAI API
	ProviderOpenAI Provider = "openai"
)

// DefaultTemperature matches the sampling the match prompt was tuned with
const DefaultTemperature float32 = 0.7

// DefaultAzureAPIVersion is the Azure OpenAI REST API version in use
const DefaultAzureAPIVersion = "2024-08-01-preview"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
	// Azure only
	Endpoint   string
	APIVersion string
}

// DefaultConfig returns the default configuration (Azure OpenAI)
func DefaultConfig() *Config {
	return DefaultAzureConfig("")
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
	}
}

// DefaultAzureConfig returns the Azure configuration. Every tier maps to the
// gpt-4o-mini deployment.
func DefaultAzureConfig(endpoint string) *Config {
	return &Config{
		Provider: ProviderAzure,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o-mini",
		},
		Temperature: DefaultTemperature,
		Endpoint:    endpoint,
		APIVersion:  DefaultAzureAPIVersion,
	}
}

// DefaultOpenAIConfig returns the public OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
		Temperature: DefaultTemperature,
	}
}

// ConfigFor returns the default configuration of a provider, or nil when the
// provider is unknown.
func ConfigFor(provider Provider) *Config {
	switch provider {
	case ProviderGemini:
		return DefaultGeminiConfig()
	case ProviderAzure:
		return DefaultAzureConfig("")
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	default:
		return nil
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

// WithAllModels returns a new Config using model for every tier
func (c *Config) WithAllModels(model string) *Config {
	out := c.WithModel(TierStandard, model)
	out.Models[TierLite] = model
	out.Models[TierAdvanced] = model
	return out
}
