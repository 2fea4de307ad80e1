package llm

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/Veraticus/ingredient-moderator/internal/common"
)

// anthropicClient implements the Client interface for the Anthropic messages API.
type anthropicClient struct {
	client      *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required: %w", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client:      anthropic.NewClient(cfg.APIKey, opts...),
		model:       model,
		temperature: float32(temperature),
		maxTokens:   maxTokens,
	}, nil
}

// Complete sends prompt as a single user message.
func (c *anthropicClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	temperature := c.temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic request failed: %w", err)
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == nil || *resp.Content[0].Text == "" {
		return Completion{}, common.Permanent(fmt.Errorf("%w: no response content", common.ErrAdapterResponse))
	}

	return Completion{
		Text:       *resp.Content[0].Text,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
