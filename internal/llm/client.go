package llm

import (
	"context"
	"time"
)

// Client defines the interface for reasoning-service providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// Completion is the text a provider returned for one prompt.
type Completion struct {
	Text string
	// TokensUsed is the provider-reported usage, or zero when unknown.
	TokensUsed int
}

// Config holds provider configuration.
type Config struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	SampleSize        int           `mapstructure:"sample_size"`
}

// EstimateTokens approximates usage at four characters per token for both
// the prompt and the reply.
func EstimateTokens(prompt, reply string) int {
	return ceilDiv(len(prompt), 4) + ceilDiv(len(reply), 4)
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
