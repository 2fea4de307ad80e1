package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/Veraticus/ingredient-moderator/internal/common"
)

// openAIChatClient uses chat completions for OpenAI-compatible endpoints
// that lack the Responses API.
type openAIChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newOpenAIChatClient(cfg Config) (*openAIChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required: %w", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &openAIChatClient{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: float32(temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *openAIChatClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You moderate a recipe product catalog. Respond with ONLY a valid JSON array.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Completion{}, statusError("OpenAI", apiErr.HTTPStatusCode, []byte(apiErr.Message))
		}
		return Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Completion{}, common.Permanent(fmt.Errorf("%w: no completion choices returned", common.ErrAdapterResponse))
	}

	return Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
