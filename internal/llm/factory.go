package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/ingredient-moderator/internal/common"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenAIChat = "openai-chat"
	ProviderAnthropic  = "anthropic"
)

// NewClient creates a provider client wrapped with rate limiting and retries.
func NewClient(cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		client, err = newOpenAIClient(cfg)
	case ProviderOpenAIChat:
		client, err = newOpenAIChatClient(cfg)
	case ProviderAnthropic:
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return withRetry(withRateLimit(client, cfg.RequestsPerMinute), retryOpts), nil
}
