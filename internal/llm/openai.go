package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the subset of *openai.Client the matcher needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Client for OpenAI and Azure OpenAI
type OpenAIClient struct {
	api    ChatCompleter
	config *Config
}

// NewOpenAIClient creates a client for config.Provider (azure or openai).
// For Azure, model names are deployment names.
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	var transportCfg openai.ClientConfig
	switch config.Provider {
	case ProviderAzure:
		if config.Endpoint == "" {
			return nil, fmt.Errorf("azure endpoint is required")
		}
		transportCfg = openai.DefaultAzureConfig(apiKey, config.Endpoint)
		if config.APIVersion != "" {
			transportCfg.APIVersion = config.APIVersion
		}
		transportCfg.AzureModelMapperFunc = func(model string) string {
			return model
		}
	case ProviderOpenAI:
		transportCfg = openai.DefaultConfig(apiKey)
	default:
		return nil, fmt.Errorf("provider %q is not served by the OpenAI client", config.Provider)
	}

	return NewOpenAIClientWithAPI(openai.NewClientWithConfig(transportCfg), config), nil
}

// NewOpenAIClientWithAPI wraps an existing chat completion API
func NewOpenAIClientWithAPI(api ChatCompleter, config *Config) *OpenAIClient {
	return &OpenAIClient{api: api, config: config}
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, tier ModelTier, jsonMode bool) (string, error) {
	model := c.config.GetModel(tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.config.Temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: no content", ErrEmptyResponse)
	}
	return text, nil
}

// GenerateContent generates text content using the specified model tier
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.complete(ctx, prompt, tier, false)
}

// GenerateJSON generates JSON content using the specified model tier
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.complete(ctx, prompt, tier, true)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP transport needs no teardown
func (c *OpenAIClient) Close() error {
	return nil
}
